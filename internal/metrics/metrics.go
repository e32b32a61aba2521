package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liftstack/lift-engine/internal/models"
)

const (
	// OutcomeSuccess labels experiment cycles that produced a decision.
	OutcomeSuccess = "success"
	// OutcomeError labels failed cycles (design, simulation or inference).
	OutcomeError = "error"
)

var (
	experimentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lift_engine",
			Name:      "experiments_total",
			Help:      "Total number of experiment cycles, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	experimentDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lift_engine",
			Name:      "experiment_seconds",
			Help:      "Experiment cycle latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13},
		},
	)

	inferencesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lift_engine",
			Name:      "inferences_total",
			Help:      "Inference results by method (mcmc or the conjugate fallback).",
		},
		[]string{"method"},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lift_engine",
			Name:      "decisions_total",
			Help:      "Ship decisions by outcome.",
		},
		[]string{"decision"},
	)
)

// Register attaches lift-engine collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		experimentsTotal,
		experimentDurationSeconds,
		inferencesTotal,
		decisionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveExperiment records a cycle duration and outcome label.
func ObserveExperiment(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	experimentsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	experimentDurationSeconds.Observe(duration.Seconds())
}

// ObserveInference counts which inference path produced a result.
func ObserveInference(method models.InferenceMethod) {
	inferencesTotal.WithLabelValues(string(method)).Inc()
}

// ObserveDecision counts ship decisions.
func ObserveDecision(decision models.Decision) {
	decisionsTotal.WithLabelValues(string(decision)).Inc()
}
