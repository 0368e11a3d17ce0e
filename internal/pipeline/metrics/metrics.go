package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for pipeline runs.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunFaults          *prometheus.CounterVec
	StageOutcomes      *prometheus.CounterVec
	StageLatency       *prometheus.HistogramVec
	OverridesTotal     *prometheus.CounterVec
	SuspendedRuns      prometheus.Counter
	ResumedRuns        prometheus.Counter
	AuditAppendLatency prometheus.Histogram
}

// New registers pipeline collectors with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers pipeline collectors with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_pipeline_runs_total",
			Help: "Total number of completed pipeline runs, labeled by overall status",
		}, []string{"status"}),
		RunFaults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_pipeline_run_faults_total",
			Help: "Total number of pipeline runs aborted by an orchestration fault, labeled by operation",
		}, []string{"operation"}),
		StageOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_stage_outcomes_total",
			Help: "Total number of stage outcomes, labeled by stage and status",
		}, []string{"stage", "status"}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiergate_stage_latency_seconds",
			Help:    "Latency of stage evaluations in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"stage"}),
		OverridesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tiergate_overrides_total",
			Help: "Total number of emergency override requests, labeled by result",
		}, []string{"result"}),
		SuspendedRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "tiergate_runs_suspended_total",
			Help: "Total number of runs suspended at stage 2 awaiting resume",
		}),
		ResumedRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "tiergate_runs_resumed_total",
			Help: "Total number of suspended runs resumed",
		}),
		AuditAppendLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tiergate_audit_append_latency_seconds",
			Help:    "Latency of audit entry appends in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementRuns(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementRunFaults(operation string) {
	m.RunFaults.WithLabelValues(operation).Inc()
}

// ObserveStage records one stage evaluation.
func (m *Metrics) ObserveStage(stage, status string, durationSeconds float64) {
	m.StageOutcomes.WithLabelValues(stage, status).Inc()
	m.StageLatency.WithLabelValues(stage).Observe(durationSeconds)
}

// IncrementOverrides counts override requests; result is "applied" or an error code.
func (m *Metrics) IncrementOverrides(result string) {
	m.OverridesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementSuspended() {
	m.SuspendedRuns.Inc()
}

func (m *Metrics) IncrementResumed() {
	m.ResumedRuns.Inc()
}

func (m *Metrics) ObserveAuditAppend(durationSeconds float64) {
	m.AuditAppendLatency.Observe(durationSeconds)
}
