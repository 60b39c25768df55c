// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrenrich/internal/resilience"
)

const namespace = "addrenrich"

// Metrics holds the run's collectors on a private registry. It satisfies
// enrich.Recorder.
type Metrics struct {
	reg *prometheus.Registry

	enriched prometheus.Counter
	dropped  *prometheus.CounterVec
	batches  prometheus.Counter
}

// New creates the collectors and registers them with process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		enriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_enriched_total",
			Help:      "Addresses enriched with coordinates.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_dropped_total",
			Help:      "Addresses dropped after a failed geocoding call.",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_completed_total",
			Help:      "Batches fully processed.",
		}),
	}
	m.reg.MustRegister(
		m.enriched,
		m.dropped,
		m.batches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// AddressEnriched counts one enriched address.
func (m *Metrics) AddressEnriched() { m.enriched.Inc() }

// AddressDropped counts one dropped address by failure kind.
func (m *Metrics) AddressDropped(kind string) { m.dropped.WithLabelValues(kind).Inc() }

// BatchCompleted counts one finished batch.
func (m *Metrics) BatchCompleted() { m.batches.Inc() }

// WatchLimits exports the state of the run's gate, limiter and cooldown.
func (m *Metrics) WatchLimits(l *resilience.Limits) error {
	for _, c := range []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_calls_in_flight",
			Help:      "Geocoding calls currently holding a slot.",
		}, func() float64 { return float64(l.Gate.InFlight()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_calls_in_flight_peak",
			Help:      "Highest number of slots held at once.",
		}, func() float64 { return float64(l.Gate.Peak()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_slot_capacity",
			Help:      "Configured concurrency ceiling.",
		}, func() float64 { return float64(l.Gate.Capacity()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_rate_tokens_granted_total",
			Help:      "Rate tokens handed out to geocoding calls.",
		}, func() float64 { return float64(l.Limiter.Granted()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cooldown_trips_total",
			Help:      "Times a call paused after the endpoint refused a connection.",
		}, func() float64 { return float64(l.Cooldown.Trips()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_cooldown_paused",
			Help:      "1 while any call is paused after a refused connection, else 0.",
		}, func() float64 {
			if l.Cooldown.State() == resilience.CooldownPaused {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_cooldown_last_trip_timestamp_seconds",
			Help:      "Unix time a call last entered the cooldown, 0 if never.",
		}, func() float64 {
			last := l.Cooldown.LastTrip()
			if last.IsZero() {
				return 0
			}
			return float64(last.UnixNano()) / 1e9
		}),
	} {
		if err := m.reg.Register(c); err != nil {
			return eris.Wrap(err, "metrics: register limits collector")
		}
	}
	return nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
