package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// newGeoServer starts a fake geocoding endpoint that answers every request
// with handler and records decoded payloads.
func newGeoServer(t *testing.T, handler func(w http.ResponseWriter, in AddressInput)) (*httptest.Server, *payloadLog) {
	t.Helper()
	log := &payloadLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in AddressInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.add(in)
		handler(w, in)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

type payloadLog struct {
	mu       sync.Mutex
	payloads []AddressInput
}

func (p *payloadLog) add(in AddressInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, in)
}

func (p *payloadLog) all() []AddressInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AddressInput(nil), p.payloads...)
}

// closedServerURL returns the URL of a server that is no longer listening.
func closedServerURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// funcClient adapts a function to Client.
type funcClient func(ctx context.Context, addr AddressInput) (*Result, error)

func (f funcClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	return f(ctx, addr)
}

// countingClient returns a fixed result and counts calls.
type countingClient struct {
	calls atomic.Int64
	res   *Result
	err   error
}

func (c *countingClient) Geocode(_ context.Context, _ AddressInput) (*Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	r := *c.res
	return &r, nil
}

func requireKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	require.Error(t, err)
	gerr, ok := err.(*Error)
	require.True(t, ok, "expected *Error, got %T: %v", err, err)
	require.Equal(t, want, gerr.Kind, "kind")
	return gerr
}

// newRawServer starts a server with a plain handler and returns its URL.
func newRawServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}
