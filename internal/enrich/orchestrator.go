// Package enrich drives geocoding of reconstructed addresses batch by batch.
package enrich

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addrenrich/internal/model"
	"github.com/sells-group/addrenrich/pkg/geocode"
)

// DefaultBatchSize is the number of addresses submitted together.
const DefaultBatchSize = 50000

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize sets the batch size.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		o.batchSize = n
	}
}

// WithObserver registers a hook called after each batch completes.
func WithObserver(fn func(BatchReport)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// Orchestrator partitions addresses into batches and enriches each batch
// concurrently. Batches run strictly one after another; the client's shared
// gate and limiter bound the calls inside a batch.
type Orchestrator struct {
	client    geocode.Client
	batchSize int
	observer  func(BatchReport)
	recorder  Recorder
	log       *zap.Logger
	nowFunc   func() time.Time
}

// New creates an Orchestrator calling client once per address.
func New(client geocode.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		batchSize: DefaultBatchSize,
		recorder:  nopRecorder{},
		log:       zap.L(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	res *geocode.Result
	err error
}

// Run enriches addrs and returns the successes in input order. Failed
// addresses are dropped and counted in Stats. Cancelling ctx aborts the run
// with the cancellation cause and no output.
func (o *Orchestrator) Run(ctx context.Context, addrs []model.Address) ([]model.EnrichedAddress, Stats, error) {
	start := o.nowFunc()
	stats := Stats{Total: len(addrs)}
	out := make([]model.EnrichedAddress, 0, len(addrs))

	batches := Partition(len(addrs), o.batchSize)
	for i, r := range batches {
		if err := ctx.Err(); err != nil {
			return nil, stats, eris.Wrap(context.Cause(ctx), "enrich: run cancelled")
		}

		batchStart := o.nowFunc()
		outcomes := o.runBatch(ctx, addrs[r.Start:r.End])

		if err := ctx.Err(); err != nil {
			return nil, stats, eris.Wrapf(context.Cause(ctx), "enrich: run cancelled in batch %d", i)
		}

		report := BatchReport{Index: i, Count: len(batches), Range: r}
		for j, oc := range outcomes {
			addr := addrs[r.Start+j]
			if oc.err != nil {
				kind := geocode.KindOf(oc.err).String()
				stats.drop(kind)
				report.Dropped++
				o.recorder.AddressDropped(kind)
				o.log.Debug("address dropped",
					zap.String("street", addr.Street),
					zap.String("street_number", addr.StreetNumber),
					zap.String("kind", kind),
					zap.Error(oc.err),
				)
				continue
			}
			out = append(out, model.EnrichedAddress{
				Address:   addr,
				Latitude:  oc.res.Latitude,
				Longitude: oc.res.Longitude,
			})
			stats.Enriched++
			report.Enriched++
			o.recorder.AddressEnriched()
		}

		stats.Batches++
		report.Elapsed = o.nowFunc().Sub(batchStart)
		o.recorder.BatchCompleted()
		o.log.Info("batch progress",
			zap.Int("batch", i),
			zap.Int("batches", len(batches)),
			zap.Int("processed", r.End),
			zap.Int("total", len(addrs)),
			zap.Int("enriched", report.Enriched),
			zap.Int("dropped", report.Dropped),
			zap.Duration("elapsed", report.Elapsed),
		)
		if o.observer != nil {
			o.observer(report)
		}
	}

	stats.Elapsed = o.nowFunc().Sub(start)
	return out, stats, nil
}

// runBatch submits every address of the batch at once and waits for all of
// them. Outcomes keep the batch order.
func (o *Orchestrator) runBatch(ctx context.Context, batch []model.Address) []outcome {
	outcomes := make([]outcome, len(batch))
	var g errgroup.Group
	for i := range batch {
		in := ToInput(batch[i])
		g.Go(func() error {
			res, err := o.client.Geocode(ctx, in)
			if err == nil && res == nil {
				err = eris.New("enrich: client returned no result")
			}
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// ToInput converts an address to the geocoding request payload. Unknown join
// values are sent as empty strings.
func ToInput(a model.Address) geocode.AddressInput {
	in := geocode.AddressInput{
		Street:       a.Street,
		StreetNumber: a.StreetNumber,
		Locality:     a.Locality,
	}
	if a.LocalityKnown {
		in.Zip = strconv.Itoa(a.Zip)
	}
	return in
}
