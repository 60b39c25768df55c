package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrenrich/internal/resilience"
)

// DefaultEndpoint is the geocoding service address used when none is configured.
const DefaultEndpoint = "http://localhost:5000/api/geo"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// HTTPClient posts one address per request to the geocoding endpoint. It
// applies no limits of its own; wrap it in a LimitedClient.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient creates a client for endpoint (DefaultEndpoint if empty).
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: newTransport()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newTransport keeps enough idle connections for a full concurrency gate.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 512
	t.MaxIdleConnsPerHost = 256
	t.IdleConnTimeout = 90 * time.Second
	return t
}

// Endpoint returns the URL requests are posted to.
func (c *HTTPClient) Endpoint() string { return c.endpoint }

type geoResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Geocode posts addr and returns the coordinates from a 200 response. Every
// failure is an *Error.
func (c *HTTPClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	payload, err := json.Marshal(addr)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(ctx, err), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &Error{Kind: KindServerRejected, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: eris.Wrap(err, "read body")}
	}

	var gr geoResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, &Error{Kind: KindDecode, Err: eris.Wrap(err, "parse response")}
	}
	if gr.Latitude == nil || gr.Longitude == nil {
		return nil, &Error{Kind: KindDecode, Err: eris.New("response lacks latitude or longitude")}
	}

	return &Result{Latitude: *gr.Latitude, Longitude: *gr.Longitude}, nil
}

// classifyTransport separates connection-establishment failures from
// timeouts, cancellations and faults on an established connection.
func classifyTransport(ctx context.Context, err error) Kind {
	if ctx.Err() != nil {
		return KindTransport
	}
	if resilience.IsConnectionFailure(err) {
		return KindConnectionFailed
	}
	return KindTransport
}
