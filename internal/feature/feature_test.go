package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrenrich/internal/model"
)

func enriched() []model.EnrichedAddress {
	return []model.EnrichedAddress{
		{
			Address:  model.Address{StreetNumber: "7a", Street: "Main St", Zip: 8000, Locality: "Zürich", StreetKnown: true, LocalityKnown: true},
			Latitude: 47.3769, Longitude: 8.5417,
		},
		{
			Address:  model.Address{StreetNumber: "12"},
			Latitude: 46.948, Longitude: 7.4474,
		},
	}
}

type geoJSON struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func decode(t *testing.T, data []byte) geoJSON {
	t.Helper()
	var g geoJSON
	require.NoError(t, json.Unmarshal(data, &g))
	return g
}

func TestWrite_FeatureCollection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(enriched())))

	g := decode(t, buf.Bytes())
	assert.Equal(t, "FeatureCollection", g.Type)
	require.Len(t, g.Features, 2)

	f := g.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{8.5417, 47.3769}, f.Geometry.Coordinates, "coordinates are (longitude, latitude)")
	assert.Equal(t, map[string]any{
		"street":        "Main St",
		"street_number": "7a",
		"zip":           float64(8000),
		"locality":      "Zürich",
	}, f.Properties)
}

func TestWrite_UnknownJoinValuesAreNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(enriched()[1:])))

	g := decode(t, buf.Bytes())
	require.Len(t, g.Features, 1)
	props := g.Features[0].Properties
	assert.Equal(t, "12", props["street_number"])
	for _, key := range []string{"street", "zip", "locality"} {
		v, ok := props[key]
		assert.True(t, ok, "%s present", key)
		assert.Nil(t, v, "%s is null", key)
	}
}

func TestWrite_NonASCIIKeptVerbatim(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(enriched()[:1])))
	assert.Contains(t, buf.String(), "Zürich")
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(nil)))

	g := decode(t, buf.Bytes())
	assert.Equal(t, "FeatureCollection", g.Type)
	assert.Empty(t, g.Features)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_IOError(t *testing.T) {
	err := Write(failWriter{}, Build(enriched()))
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Post_Adressdaten20170425.geojson")

	require.NoError(t, WriteFile(path, Build(enriched())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decode(t, data).Features, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteFile(path, Build(enriched()[:1])))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decode(t, data).Features, 1)
}

func TestWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.geojson")
	err := WriteFile(path, Build(enriched()))

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "create", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, dir, want string
	}{
		{"Post_Adressdaten20170425.csv", "", "Post_Adressdaten20170425.geojson"},
		{"data/registry.csv", "", "data/registry.geojson"},
		{"data/registry.csv", "out", filepath.Join("out", "registry.geojson")},
		{"registry", "", "registry.geojson"},
		{"archive.v2.txt", "", "archive.v2.geojson"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputPath(tt.input, tt.dir), tt.input)
	}
}
