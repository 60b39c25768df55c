package model

import "strconv"

// RecordType is the leading discriminator of a registry row.
type RecordType int

const (
	RecordLocality    RecordType = 1
	RecordStreet      RecordType = 4
	RecordHouseNumber RecordType = 6
)

func (t RecordType) String() string {
	switch t {
	case RecordLocality:
		return "locality"
	case RecordStreet:
		return "street"
	case RecordHouseNumber:
		return "house_number"
	default:
		return "unknown"
	}
}

// StreetSegment is a street row (record type 4).
type StreetSegment struct {
	StreetID     int    `json:"street_id"`
	LocalityCode int    `json:"locality_code"`
	Name         string `json:"name"`
}

// Locality is a locality row (record type 1).
type Locality struct {
	Code int    `json:"code"`
	Zip  int    `json:"zip"`
	Name string `json:"name"`
}

// HouseNumber is a house-number assignment (record type 6).
type HouseNumber struct {
	StreetID int    `json:"street_id"`
	Number   int    `json:"number"`
	Suffix   string `json:"suffix"`
}

// Display returns the house number as printed on a building, e.g. "7a".
func (h HouseNumber) Display() string {
	return strconv.Itoa(h.Number) + h.Suffix
}

// Address is a reconstructed street address. StreetKnown and LocalityKnown
// are false when the corresponding left join found no match; the associated
// fields are then zero and serialize as null.
type Address struct {
	StreetNumber  string `json:"street_number"`
	Street        string `json:"street"`
	Zip           int    `json:"zip"`
	Locality      string `json:"locality"`
	StreetKnown   bool   `json:"-"`
	LocalityKnown bool   `json:"-"`
}

// EnrichedAddress is an Address with coordinates from a successful geocode.
type EnrichedAddress struct {
	Address
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
