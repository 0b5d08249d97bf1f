package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Denials        *prometheus.CounterVec
	Allowed        *prometheus.CounterVec
	BlocksTotal    prometheus.Counter
	EntriesEvicted prometheus.Counter
}

// New registers limiter metrics on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_ratelimit_denials_total",
			Help: "Total number of denied attempts by action and rule",
		}, []string{"action", "rule"}),
		Allowed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_ratelimit_allowed_total",
			Help: "Total number of allowed attempts by action",
		}, []string{"action"}),
		BlocksTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "ofertas_ratelimit_blocks_total",
			Help: "Total number of blocks started after a policy was exceeded",
		}),
		EntriesEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "ofertas_ratelimit_entries_evicted_total",
			Help: "Total number of idle limiter entries evicted",
		}),
	}
}

func (m *Metrics) IncrementDenied(action, rule string) {
	m.Denials.WithLabelValues(action, rule).Inc()
}

func (m *Metrics) IncrementAllowed(action string) {
	m.Allowed.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementBlocks() {
	m.BlocksTotal.Inc()
}

func (m *Metrics) AddEvicted(n int) {
	m.EntriesEvicted.Add(float64(n))
}
