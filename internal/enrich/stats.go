package enrich

import "time"

// Stats summarizes a run. Per-address failures surface only here, in logs
// and in metrics.
type Stats struct {
	Total         int            `json:"total" yaml:"total"`
	Enriched      int            `json:"enriched" yaml:"enriched"`
	Dropped       int            `json:"dropped" yaml:"dropped"`
	Batches       int            `json:"batches" yaml:"batches"`
	DroppedByKind map[string]int `json:"dropped_by_kind,omitempty" yaml:"dropped_by_kind,omitempty"`
	Elapsed       time.Duration  `json:"elapsed" yaml:"elapsed"`
}

func (s *Stats) drop(kind string) {
	s.Dropped++
	if s.DroppedByKind == nil {
		s.DroppedByKind = make(map[string]int)
	}
	s.DroppedByKind[kind]++
}

// BatchReport describes one completed batch.
type BatchReport struct {
	Index    int
	Count    int
	Range    Range
	Enriched int
	Dropped  int
	Elapsed  time.Duration
}

// Recorder receives per-address and per-batch outcomes, typically to update
// metrics.
type Recorder interface {
	AddressEnriched()
	AddressDropped(kind string)
	BatchCompleted()
}

type nopRecorder struct{}

func (nopRecorder) AddressEnriched()      {}
func (nopRecorder) AddressDropped(string) {}
func (nopRecorder) BatchCompleted()       {}
