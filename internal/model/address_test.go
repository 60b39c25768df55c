package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHouseNumber_Display(t *testing.T) {
	tests := []struct {
		name string
		hn   HouseNumber
		want string
	}{
		{"with suffix", HouseNumber{StreetID: 10, Number: 7, Suffix: "a"}, "7a"},
		{"no suffix", HouseNumber{StreetID: 10, Number: 12}, "12"},
		{"multi char suffix", HouseNumber{Number: 3, Suffix: ".1"}, "3.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hn.Display())
		})
	}
}

func TestRecordType_String(t *testing.T) {
	assert.Equal(t, "locality", RecordLocality.String())
	assert.Equal(t, "street", RecordStreet.String())
	assert.Equal(t, "house_number", RecordHouseNumber.String())
	assert.Equal(t, "unknown", RecordType(2).String())
}
