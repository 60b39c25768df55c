package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/addrenrich/internal/config"
	"github.com/sells-group/addrenrich/pkg/geocode"
)

// registryRow builds a 16-column registry line with the given columns set.
func registryRow(typ string, cols map[int]string) string {
	fields := make([]string, 16)
	fields[0] = typ
	for i, v := range cols {
		fields[i] = v
	}
	return strings.Join(fields, ";")
}

// writeRegistry writes a small ISO-8859-1 registry: two localities, two
// streets (one pointing at an unknown locality), four house numbers (one on
// an unknown street, one without a number) and a header row of another type.
func writeRegistry(t *testing.T, dir string) string {
	t.Helper()
	lines := []string{
		registryRow("00", map[int]string{1: "2017-04-25"}),
		registryRow("01", map[int]string{1: "100", 4: "8001", 8: "Zürich"}),
		registryRow("01", map[int]string{1: "200", 4: "3011", 8: "Bern"}),
		registryRow("04", map[int]string{1: "10", 2: "100", 6: "Bahnhofstrasse"}),
		registryRow("04", map[int]string{1: "20", 2: "999", 6: "Gerechtigkeitsgasse"}),
		registryRow("06", map[int]string{2: "10", 3: "7", 4: "a"}),
		registryRow("06", map[int]string{2: "20", 3: "12"}),
		registryRow("06", map[int]string{2: "30", 3: "3"}),
		registryRow("06", map[int]string{2: "10", 3: ""}),
	}
	latin1, err := charmap.ISO8859_1.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)

	path := filepath.Join(dir, "Post_Adressdaten20170425.csv")
	require.NoError(t, os.WriteFile(path, []byte(latin1), 0o644))
	return path
}

// newGeoServer answers with coordinates derived from the street number and
// rejects street number "3".
func newGeoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in geocode.AddressInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if in.StreetNumber == "3" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"latitude": 47.0, "longitude": 8.0}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useConfig installs a valid config for the duration of the test.
func useConfig(t *testing.T, endpoint, outDir string) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Input.Delimiter = ";"
	c.Input.Encoding = "iso-8859-1"
	c.Geocode.Endpoint = endpoint
	c.Geocode.Concurrency = 8
	c.Geocode.RateLimit = 1000
	c.Geocode.RateWindow = time.Second
	c.Geocode.Burst = 1
	c.Geocode.Cooldown = 10 * time.Millisecond
	c.Geocode.Timeout = 5 * time.Second
	c.Batch.Size = 2
	c.Output.Dir = outDir
	c.Fetch.TimeoutSecs = 5
	c.Fetch.MaxRetries = 1
	c.Log.Level = "info"

	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
	return c
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}
