// Package postfile turns the rows of a multi-record address registry file into
// normalized street addresses.
package postfile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrenrich/internal/model"
)

// RawRow is one line of the registry file. Fields[0] holds the record type.
type RawRow struct {
	Line   int
	Fields []string
}

// Type parses the record type. Rows whose type is not an integer report ok=false.
func (r RawRow) Type() (model.RecordType, bool) {
	if len(r.Fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.Fields[0]))
	if err != nil {
		return 0, false
	}
	return model.RecordType(n), true
}

// field returns column i, or "" when the row is shorter.
func (r RawRow) field(i int) string {
	if i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// Column offsets per record type; column 0 is the type itself.
const (
	colLocalityCode = 1
	colLocalityZip  = 4
	colLocalityName = 8

	colStreetID       = 1
	colStreetLocality = 2
	colStreetName     = 6

	colNumberStreetID = 2
	colNumber         = 3
	colNumberSuffix   = 4
)

// ParseError reports a row of a known record type whose columns cannot be
// coerced to the expected types.
type ParseError struct {
	Line       int
	RecordType model.RecordType
	Column     int
	Field      string
	Value      string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("postfile: line %d: %s record: column %d (%s): invalid value %q: %v",
		e.Line, e.RecordType, e.Column, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Projections holds the typed rows of one registry file in file order.
type Projections struct {
	Streets    []model.StreetSegment
	Localities []model.Locality
	Numbers    []model.HouseNumber

	// Ignored counts rows with an unrecognized record type.
	Ignored int
	// SkippedNumbers counts house-number rows without a number.
	SkippedNumbers int
}

// Classifier splits rows into the three projections.
type Classifier struct {
	p Projections
}

// NewClassifier returns an empty Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Add classifies a single row. It returns a *ParseError for a malformed row
// of a known type; the Classifier is left unchanged in that case.
func (c *Classifier) Add(row RawRow) error {
	typ, ok := row.Type()
	if !ok {
		c.p.Ignored++
		return nil
	}

	switch typ {
	case model.RecordLocality:
		code, err := intField(row, typ, colLocalityCode, "locality_code")
		if err != nil {
			return err
		}
		zip, err := intField(row, typ, colLocalityZip, "zip")
		if err != nil {
			return err
		}
		c.p.Localities = append(c.p.Localities, model.Locality{
			Code: code,
			Zip:  zip,
			Name: row.field(colLocalityName),
		})

	case model.RecordStreet:
		id, err := intField(row, typ, colStreetID, "street_id")
		if err != nil {
			return err
		}
		code, err := intField(row, typ, colStreetLocality, "locality_code")
		if err != nil {
			return err
		}
		c.p.Streets = append(c.p.Streets, model.StreetSegment{
			StreetID:     id,
			LocalityCode: code,
			Name:         row.field(colStreetName),
		})

	case model.RecordHouseNumber:
		if row.field(colNumber) == "" {
			c.p.SkippedNumbers++
			return nil
		}
		id, err := intField(row, typ, colNumberStreetID, "street_id")
		if err != nil {
			return err
		}
		num, err := intField(row, typ, colNumber, "house_number")
		if err != nil {
			return err
		}
		c.p.Numbers = append(c.p.Numbers, model.HouseNumber{
			StreetID: id,
			Number:   num,
			Suffix:   row.field(colNumberSuffix),
		})

	default:
		c.p.Ignored++
	}
	return nil
}

// Projections returns the rows classified so far.
func (c *Classifier) Projections() Projections {
	return c.p
}

// Classify partitions rows and stops at the first malformed row.
func Classify(rows []RawRow) (Projections, error) {
	c := NewClassifier()
	for _, row := range rows {
		if err := c.Add(row); err != nil {
			return Projections{}, err
		}
	}
	return c.Projections(), nil
}

// ClassifyStream consumes rows produced by fetcher.StreamCSV. Lines are
// numbered from 1 in arrival order. A read error from errCh or a malformed row
// aborts classification.
func ClassifyStream(ctx context.Context, rowCh <-chan []string, errCh <-chan error) (Projections, error) {
	c := NewClassifier()
	line := 0
	for fields := range rowCh {
		line++
		if err := c.Add(RawRow{Line: line, Fields: fields}); err != nil {
			// Unblock the producer before returning.
			go drain(rowCh)
			return Projections{}, err
		}
	}
	for err := range errCh {
		if err != nil {
			return Projections{}, eris.Wrap(err, "postfile: read rows")
		}
	}
	if ctx.Err() != nil {
		return Projections{}, eris.Wrap(ctx.Err(), "postfile: classify")
	}
	return c.Projections(), nil
}

func drain(ch <-chan []string) {
	for range ch { //nolint:revive // drain
	}
}

func intField(row RawRow, typ model.RecordType, col int, name string) (int, error) {
	raw := row.field(col)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParseError{
			Line:       row.Line,
			RecordType: typ,
			Column:     col,
			Field:      name,
			Value:      raw,
			Err:        err,
		}
	}
	return n, nil
}
