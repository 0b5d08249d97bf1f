package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomePending   = "pending"
	OutcomeApproved  = "approved"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeLimited   = "rate_limited"
	OutcomeError     = "error"
)

type Metrics struct {
	Submissions        *prometheus.CounterVec
	CascadeApprovals   *prometheus.CounterVec
	SpamFlagged        prometheus.Counter
	ConflictAdvisories *prometheus.CounterVec
	SubmitLatency      *prometheus.HistogramVec
}

// New registers contribution metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_contribution_submissions_total",
			Help: "Total number of contribution submissions by table and outcome",
		}, []string{"table", "outcome"}),
		CascadeApprovals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_contribution_cascade_approvals_total",
			Help: "Total number of pending contributions approved by corroboration",
		}, []string{"table"}),
		SpamFlagged: f.NewCounter(prometheus.CounterOpts{
			Name: "ofertas_contribution_spam_flagged_total",
			Help: "Total number of submissions flagged by the spam heuristic",
		}),
		ConflictAdvisories: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ofertas_contribution_conflict_advisories_total",
			Help: "Total number of price conflict advisories by resolution",
		}, []string{"resolution"}),
		SubmitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ofertas_contribution_submit_duration_seconds",
			Help:    "Latency of consensus submissions",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),
	}
}

func (m *Metrics) IncrementSubmission(table, outcome string) {
	m.Submissions.WithLabelValues(table, outcome).Inc()
}

func (m *Metrics) AddCascadeApprovals(table string, n int) {
	m.CascadeApprovals.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) IncrementSpamFlagged() {
	m.SpamFlagged.Inc()
}

func (m *Metrics) IncrementConflict(resolution string) {
	m.ConflictAdvisories.WithLabelValues(resolution).Inc()
}

func (m *Metrics) ObserveSubmit(table string, d time.Duration) {
	m.SubmitLatency.WithLabelValues(table).Observe(d.Seconds())
}
