// Package metrics provides Prometheus metrics for the intake agent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"intake-chatbot/pkg"
)

// Metrics holds all application metrics.  A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CasesResolved        *prometheus.CounterVec
	EscalationFailures   prometheus.Counter
	DurationReprompts    prometheus.Counter
	PrescriptionsIssued  *prometheus.CounterVec
	PrescriptionFailures prometheus.Counter
	LLMDuration          prometheus.Histogram
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CasesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_cases_resolved_total",
			Help: "Completed cases by outcome",
		}, []string{"outcome"}),
		EscalationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_escalation_failures_total",
			Help: "Language-model escalations that failed",
		}),
		DurationReprompts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_duration_reprompts_total",
			Help: "Duration answers that could not be parsed",
		}),
		PrescriptionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_prescriptions_issued_total",
			Help: "Prescription documents written, by diagnosis provenance",
		}, []string{"provenance"}),
		PrescriptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_prescription_failures_total",
			Help: "Prescription documents that could not be written",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_llm_request_duration_seconds",
			Help:    "Language-model escalation latency",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}),
	}

	reg.MustRegister(
		m.CasesResolved,
		m.EscalationFailures,
		m.DurationReprompts,
		m.PrescriptionsIssued,
		m.PrescriptionFailures,
		m.LLMDuration,
	)

	return m
}

func (m *Metrics) CaseResolved(outcome pkg.Outcome) {
	if m == nil {
		return
	}
	m.CasesResolved.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) EscalationFailed() {
	if m == nil {
		return
	}
	m.EscalationFailures.Inc()
}

func (m *Metrics) DurationReprompted() {
	if m == nil {
		return
	}
	m.DurationReprompts.Inc()
}

func (m *Metrics) PrescriptionIssued(p pkg.Provenance) {
	if m == nil {
		return
	}
	m.PrescriptionsIssued.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) PrescriptionFailed() {
	if m == nil {
		return
	}
	m.PrescriptionFailures.Inc()
}

// ObserveLLM records how long an escalation call took.
func (m *Metrics) ObserveLLM(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Observe(d.Seconds())
}
