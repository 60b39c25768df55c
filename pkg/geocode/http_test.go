package geocode

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zurich = AddressInput{Locality: "Zürich", Zip: "8001", Street: "Bahnhofstrasse", StreetNumber: "7a"}

func TestHTTPClient_Success(t *testing.T) {
	srv, log := newGeoServer(t, func(w http.ResponseWriter, _ AddressInput) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"latitude": 47.3717, "longitude": 8.5394, "confidence": 0.9}`)
	})

	c := NewHTTPClient(srv.URL + "/api/geo")
	res, err := c.Geocode(context.Background(), zurich)
	require.NoError(t, err)
	assert.InDelta(t, 47.3717, res.Latitude, 1e-9)
	assert.InDelta(t, 8.5394, res.Longitude, 1e-9)
	assert.Equal(t, []AddressInput{zurich}, log.all())
}

func TestHTTPClient_RequestShape(t *testing.T) {
	var method, contentType string
	var raw []byte
	srv := newRawServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		raw, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"latitude": 1, "longitude": 2}`)
	})

	_, err := NewHTTPClient(srv).Geocode(context.Background(), zurich)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"Locality":"Zürich","Zip":"8001","Street":"Bahnhofstrasse","StreetNumber":"7a"}`, string(raw))
}

func TestHTTPClient_ServerRejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		srv, _ := newGeoServer(t, func(w http.ResponseWriter, _ AddressInput) {
			w.WriteHeader(status)
		})

		_, err := NewHTTPClient(srv.URL).Geocode(context.Background(), zurich)
		gerr := requireKind(t, err, KindServerRejected)
		assert.Equal(t, status, gerr.StatusCode)
		assert.Contains(t, err.Error(), "status")
	}
}

func TestHTTPClient_Decode(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing longitude", `{"latitude": 47.1}`},
		{"missing both", `{}`},
		{"string coordinates", `{"latitude": "47.1", "longitude": "8.5"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newGeoServer(t, func(w http.ResponseWriter, _ AddressInput) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := NewHTTPClient(srv.URL).Geocode(context.Background(), zurich)
			requireKind(t, err, KindDecode)
		})
	}
}

func TestHTTPClient_ConnectionFailed(t *testing.T) {
	_, err := NewHTTPClient(closedServerURL(t)).Geocode(context.Background(), zurich)
	requireKind(t, err, KindConnectionFailed)
}

func TestHTTPClient_TimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newGeoServer(t, func(w http.ResponseWriter, _ AddressInput) {
		<-release
		_, _ = io.WriteString(w, `{"latitude": 1, "longitude": 2}`)
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewHTTPClient(srv.URL).Geocode(ctx, zurich)
	requireKind(t, err, KindTransport)
}

func TestNewHTTPClient_DefaultEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/api/geo", NewHTTPClient("").Endpoint())

	hc := &http.Client{Timeout: time.Second}
	c := NewHTTPClient("http://geo.internal/api", WithHTTPClient(hc))
	assert.Equal(t, "http://geo.internal/api", c.Endpoint())
	assert.Same(t, hc, c.httpClient)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "server_rejected", KindServerRejected.String())
	assert.Equal(t, "connection_failed", KindConnectionFailed.String())
	assert.Equal(t, "decode", KindDecode.String())
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDecode, KindOf(&Error{Kind: KindDecode}))
	assert.Equal(t, KindTransport, KindOf(context.Canceled))
}
