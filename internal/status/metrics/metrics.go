package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StatusWrites      *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	EventsForwarded   *prometheus.CounterVec
	RecordsExpired    prometheus.Counter
	ActiveSubscribers prometheus.Gauge
}

// New registers status metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StatusWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_status_writes_total",
			Help: "Total number of status writes by status",
		}, []string{"status"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "ofertas_status_events_dropped_total",
			Help: "Total number of status events dropped because a subscriber was full",
		}),
		EventsForwarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_status_events_forwarded_total",
			Help: "Total number of status events forwarded to Kafka by result",
		}, []string{"result"}),
		RecordsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "ofertas_status_records_expired_total",
			Help: "Total number of status records removed by cleanup",
		}),
		ActiveSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofertas_status_subscribers",
			Help: "Number of active in-process status subscribers",
		}),
	}
}

func (m *Metrics) IncrementWrite(status string) {
	m.StatusWrites.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementDropped() {
	m.EventsDropped.Inc()
}

func (m *Metrics) IncrementForwarded(result string) {
	m.EventsForwarded.WithLabelValues(result).Inc()
}

func (m *Metrics) AddExpired(n int) {
	m.RecordsExpired.Add(float64(n))
}
