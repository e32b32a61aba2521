package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/liftstack/lift-engine/internal/models"
)

// Designer produces experiment designs. Production deployments may plug in an
// agent-backed generator; the repository ships a catalog-based default.
type Designer interface {
	Generate(ctx context.Context) (models.ExperimentDesign, error)
}

// Simulator supplies binary user responses for one variant.
type Simulator interface {
	SimulateUsers(variant models.Variant, n int) (models.Observations, error)
}

// DecisionRule maps a posterior summary to a ship decision.
type DecisionRule interface {
	Decide(summary models.PosteriorSummary) (models.Decision, error)
}

// HistoryStore persists finished experiment records.
type HistoryStore interface {
	SaveExperiment(ctx context.Context, record models.ExperimentRecord) error
}

// Pipeline orchestrates one experiment cycle: design, simulate, infer, decide,
// persist.
type Pipeline struct {
	logger    *slog.Logger
	designer  Designer
	simulator Simulator
	bayes     *BayesEngine
	rule      DecisionRule
	store     HistoryStore
}

// NewPipeline constructs the experiment pipeline. The store may be nil for dry
// runs; persistence failures never fail a run.
func NewPipeline(logger *slog.Logger, designer Designer, simulator Simulator, bayes *BayesEngine, rule DecisionRule, store HistoryStore) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		designer:  designer,
		simulator: simulator,
		bayes:     bayes,
		rule:      rule,
		store:     store,
	}
}

// Run executes one experiment cycle and returns its record.
func (p *Pipeline) Run(ctx context.Context) (models.ExperimentRecord, error) {
	if p.designer == nil || p.simulator == nil || p.bayes == nil || p.rule == nil {
		return models.ExperimentRecord{}, fmt.Errorf("pipeline not fully configured")
	}

	design, err := p.designer.Generate(ctx)
	if err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("generate design: %w", err)
	}
	if err := design.Validate(); err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("invalid design: %w", err)
	}

	p.logger.Debug("design generated",
		slog.Any("treatment", design.Treatment),
		slog.Int("sample_size", design.SampleSize))

	control, err := p.simulator.SimulateUsers(design.Control, design.SampleSize)
	if err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("simulate control: %w", err)
	}
	treatment, err := p.simulator.SimulateUsers(design.Treatment, design.SampleSize)
	if err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("simulate treatment: %w", err)
	}

	summary, err := p.bayes.Infer(ctx, control, treatment)
	if err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("inference: %w", err)
	}

	decision, err := p.rule.Decide(summary)
	if err != nil {
		return models.ExperimentRecord{}, fmt.Errorf("decide: %w", err)
	}

	record := models.ExperimentRecord{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Design:        design,
		ControlRate:   control.Rate(),
		TreatmentRate: treatment.Rate(),
		Posterior:     summary,
		Decision:      decision,
	}

	if p.store != nil {
		if err := p.store.SaveExperiment(ctx, record); err != nil {
			p.logger.Warn("failed to persist experiment", slog.Any("error", err))
		}
	}

	return record, nil
}
