package orchestrator

import (
	"time"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/prometheus/client_golang/prometheus"
)

// --- Metrics ---

// Metrics holds all the Prometheus metrics for the orchestrator. A nil *Metrics
// records nothing.
type Metrics struct {
	stageDuration  *prometheus.HistogramVec
	stageOutcomes  *prometheus.CounterVec
	workflowsTotal *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

// NewMetrics creates and registers the metrics for the orchestrator under
// namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time taken to run a single launch stage, including the confirmation wait.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Total number of stage outcomes, labeled by stage, status and error kind.",
		}, []string{"stage", "status", "kind"}),
		workflowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Total number of launch runs, labeled by terminal status.",
		}, []string{"status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflows_in_flight",
			Help:      "Number of launch runs currently executing.",
		}),
	}
	reg.MustRegister(m.stageDuration, m.stageOutcomes, m.workflowsTotal, m.inFlight)
	return m
}

func (m *Metrics) observeStage(o launch.StageOutcome, d time.Duration) {
	if m == nil {
		return
	}
	if o.Status != launch.OutcomeSkipped {
		m.stageDuration.WithLabelValues(string(o.Stage)).Observe(d.Seconds())
	}
	m.stageOutcomes.WithLabelValues(string(o.Stage), string(o.Status), string(o.Kind)).Inc()
}

func (m *Metrics) observeWorkflow(status launch.Status) {
	if m == nil {
		return
	}
	m.workflowsTotal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) runFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
