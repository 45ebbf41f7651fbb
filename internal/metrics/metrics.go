package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks token issuance, validation outcomes, completions and email dispatch.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TokensIssued      *prometheus.CounterVec
	RowsSkipped       *prometheus.CounterVec
	Validations       *prometheus.CounterVec
	Completions       *prometheus.CounterVec
	EmailsDispatched  *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	LeaderSessionsNew prometheus.Counter
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessmentlinks_tokens_issued_total",
			Help: "Total number of tokens issued",
		}, []string{"kind"}),
		RowsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessmentlinks_rows_skipped_total",
			Help: "Upload rows skipped during issuance",
		}, []string{"kind", "reason"}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessmentlinks_validations_total",
			Help: "Token validations by kind and outcome",
		}, []string{"kind", "outcome"}),
		Completions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessmentlinks_completions_total",
			Help: "Registration completions by outcome",
		}, []string{"outcome"}),
		EmailsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessmentlinks_emails_dispatched_total",
			Help: "Emails dispatched by kind and result",
		}, []string{"kind", "result"}),
		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessmentlinks_dispatch_duration_seconds",
			Help:    "Duration of a full dispatch batch",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		LeaderSessionsNew: factory.NewCounter(prometheus.CounterOpts{
			Name: "assessmentlinks_leader_sessions_created_total",
			Help: "Leader portal sessions created",
		}),
	}
}

func (m *Metrics) IncIssued(kind string, n int) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncSkipped(kind, reason string) {
	if m == nil {
		return
	}
	m.RowsSkipped.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) IncValidation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncCompletion(outcome string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDispatched(kind, result string) {
	if m == nil {
		return
	}
	m.EmailsDispatched.WithLabelValues(kind, result).Inc()
}

// ObserveDispatch records how long a dispatch batch took, in seconds
func (m *Metrics) ObserveDispatch(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) IncLeaderSession() {
	if m == nil {
		return
	}
	m.LeaderSessionsNew.Inc()
}
