package postfile

import (
	"github.com/sells-group/addrenrich/internal/model"
)

// JoinStats summarizes how many addresses matched each lookup table.
type JoinStats struct {
	Addresses         int `yaml:"addresses" json:"addresses"`
	StreetMatched     int `yaml:"street_matched" json:"street_matched"`
	LocalityMatched   int `yaml:"locality_matched" json:"locality_matched"`
	DuplicateStreets  int `yaml:"duplicate_streets" json:"duplicate_streets"`
	DuplicateLocality int `yaml:"duplicate_localities" json:"duplicate_localities"`
}

// Reconstruct left-joins house numbers to streets on street ID and the result
// to localities on locality code. Output order follows p.Numbers; duplicate
// house numbers yield duplicate addresses.
func Reconstruct(p Projections) []model.Address {
	addrs, _ := ReconstructWithStats(p)
	return addrs
}

// ReconstructWithStats is Reconstruct plus join statistics.
func ReconstructWithStats(p Projections) ([]model.Address, JoinStats) {
	var stats JoinStats

	// First row wins on duplicate keys so the join stays many-to-one.
	streets := make(map[int]model.StreetSegment, len(p.Streets))
	for _, s := range p.Streets {
		if _, ok := streets[s.StreetID]; ok {
			stats.DuplicateStreets++
			continue
		}
		streets[s.StreetID] = s
	}
	localities := make(map[int]model.Locality, len(p.Localities))
	for _, l := range p.Localities {
		if _, ok := localities[l.Code]; ok {
			stats.DuplicateLocality++
			continue
		}
		localities[l.Code] = l
	}

	addrs := make([]model.Address, 0, len(p.Numbers))
	for _, hn := range p.Numbers {
		addr := model.Address{StreetNumber: hn.Display()}

		if s, ok := streets[hn.StreetID]; ok {
			addr.Street = s.Name
			addr.StreetKnown = true
			stats.StreetMatched++

			if l, ok := localities[s.LocalityCode]; ok {
				addr.Zip = l.Zip
				addr.Locality = l.Name
				addr.LocalityKnown = true
				stats.LocalityMatched++
			}
		}

		addrs = append(addrs, addr)
	}
	stats.Addresses = len(addrs)

	return addrs, stats
}
