// Package feature assembles enriched addresses into a GeoJSON
// FeatureCollection and writes it out.
package feature

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/addrenrich/internal/model"
)

// Extension is the output file extension.
const Extension = ".geojson"

// IOError is a failure to encode or persist the output. It is fatal to a run.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return "feature: " + e.Op + ": " + e.Err.Error()
	}
	return "feature: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// Build returns one Point feature per address, in order.
func Build(addrs []model.EnrichedAddress) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(addrs))
	for i := range addrs {
		features = append(features, NewFeature(addrs[i]))
	}
	return &geojson.FeatureCollection{Features: features}
}

// NewFeature returns the Point (longitude, latitude) feature for a.
func NewFeature(a model.EnrichedAddress) *geojson.Feature {
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{a.Longitude, a.Latitude}),
		Properties: Properties(a.Address),
	}
}

// Properties maps an address to feature properties. Values unknown after
// the join are nil and encode as JSON null.
func Properties(a model.Address) map[string]any {
	props := map[string]any{
		"street_number": a.StreetNumber,
		"street":        nil,
		"zip":           nil,
		"locality":      nil,
	}
	if a.StreetKnown {
		props["street"] = a.Street
	}
	if a.LocalityKnown {
		props["zip"] = a.Zip
		props["locality"] = a.Locality
	}
	return props
}

// Write encodes fc to w.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return &IOError{Op: "encode", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// WriteFile writes fc to path through a temporary file in the same
// directory, so path holds either the complete output or its previous
// content.
func WriteFile(path string, fc *geojson.FeatureCollection) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	data, err := json.Marshal(fc)
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &IOError{Op: "chmod", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// OutputPath derives the output file from the input name: the extension is
// replaced by .geojson. With a non-empty dir the file is placed there,
// otherwise next to the input.
func OutputPath(inputName, dir string) string {
	stem := strings.TrimSuffix(inputName, filepath.Ext(inputName))
	if dir == "" {
		return stem + Extension
	}
	return filepath.Join(dir, filepath.Base(stem)+Extension)
}
