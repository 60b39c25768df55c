// Package geocode resolves registry addresses to coordinates through a remote
// geocoding endpoint.
package geocode

import (
	"context"
)

// Client geocodes one address per call.
type Client interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is the request payload sent to the geocoding endpoint. All
// fields are sent as strings.
type AddressInput struct {
	Locality     string `json:"Locality"`
	Zip          string `json:"Zip"`
	Street       string `json:"Street"`
	StreetNumber string `json:"StreetNumber"`
}

// Result holds the coordinates returned for an address.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
