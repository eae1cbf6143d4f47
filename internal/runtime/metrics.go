package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/reach/internal/solver"
)

const metricsNamespace = "reach"

// Solve outcomes as used in metric labels.
const (
	OutcomeSolved     = "solved"
	OutcomeUnsolved   = "unsolved"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeRejected   = "rejected"
)

// Metrics holds the Prometheus collectors for solves.
type Metrics struct {
	// SolvesTotal counts finished solves.
	// Labels: outcome, level
	SolvesTotal *prometheus.CounterVec

	// SolveDurationSeconds measures wall time per solve.
	// Labels: level
	SolveDurationSeconds *prometheus.HistogramVec

	// StatesExplored measures search states visited per solve.
	StatesExplored prometheus.Histogram

	// InFlight is the number of solves currently running.
	InFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SolvesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "solves_total",
			Help:      "Finished solves by outcome and operator level",
		}, []string{"outcome", "level"}),
		SolveDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "solve_duration_seconds",
			Help:      "Solve wall time by operator level",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"level"}),
		StatesExplored: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "states_explored",
			Help:      "Search states visited per solve",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 8),
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "solves_in_flight",
			Help:      "Solves currently running",
		}),
	}
}

// Record accounts for one finished solve.
func (m *Metrics) Record(outcome string, level solver.Level, elapsed time.Duration, states int) {
	m.SolvesTotal.WithLabelValues(outcome, level.String()).Inc()
	if outcome == OutcomeRejected {
		return
	}
	m.SolveDurationSeconds.WithLabelValues(level.String()).Observe(elapsed.Seconds())
	m.StatesExplored.Observe(float64(states))
}
