package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/liftstack/lift-engine/internal/engine"
	"github.com/liftstack/lift-engine/internal/metrics"
	"github.com/liftstack/lift-engine/internal/models"
	"github.com/liftstack/lift-engine/internal/utils"
)

// ExperimentService drives experiment cycles through the pipeline and records
// operational telemetry around them.
type ExperimentService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	latencies *utils.LatencyTracker
}

// NewExperimentService constructs the workflow facade.
func NewExperimentService(logger *slog.Logger, pipeline *engine.Pipeline) *ExperimentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExperimentService{
		logger:    logger,
		pipeline:  pipeline,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// RunExperiment executes a single cycle and observes its metrics.
func (s *ExperimentService) RunExperiment(ctx context.Context) (models.ExperimentRecord, error) {
	start := time.Now()
	record, err := s.pipeline.Run(ctx)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveExperiment(duration, metrics.OutcomeError)
		return models.ExperimentRecord{}, err
	}

	s.latencies.Observe(duration)
	metrics.ObserveExperiment(duration, metrics.OutcomeSuccess)
	metrics.ObserveInference(record.Posterior.Method)
	metrics.ObserveDecision(record.Decision)

	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("experiment latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
	return record, nil
}

// RunBatch executes n cycles, stopping early on cancellation or the first
// failed cycle. Completed records are returned either way.
func (s *ExperimentService) RunBatch(ctx context.Context, n int) ([]models.ExperimentRecord, error) {
	records := make([]models.ExperimentRecord, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		record, err := s.RunExperiment(ctx)
		if err != nil {
			s.logger.Error("experiment failed", slog.Int("run", i+1), slog.Any("error", err))
			return records, err
		}

		s.logger.Info("experiment complete",
			slog.String("id", record.ID),
			slog.String("decision", string(record.Decision)),
			slog.Float64("prob_treatment_better", record.Posterior.ProbTreatmentBetter))
		records = append(records, record)
	}
	return records, nil
}

// LatencyP95 exposes the current p95 cycle latency.
func (s *ExperimentService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}
