package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liftstack/lift-engine/internal/models"
)

// errorDetailLimit truncates logged sampler errors to keep warn lines bounded.
const errorDetailLimit = 200

// posteriorSampler is the high-fidelity inference path.
type posteriorSampler interface {
	Sample(ctx context.Context, control, treatment models.Observations) (models.PosteriorSummary, error)
}

// approximator is the closed-form fallback path.
type approximator interface {
	Approximate(control, treatment models.Observations) (models.PosteriorSummary, error)
}

// BayesEngine estimates the probability that a treatment variant outperforms
// control. It attempts the posterior sampler first and transparently
// substitutes the conjugate approximation when the sampler fails. Both paths
// estimate the identical statistical model, so the substitution degrades
// fidelity, never meaning: the decision pipeline always gets an answer unless
// both strategies are impossible.
type BayesEngine struct {
	logger   *slog.Logger
	sampler  posteriorSampler
	fallback approximator
}

// EngineOption customises a BayesEngine.
type EngineOption func(*BayesEngine)

// WithSampler replaces the sampling path.
func WithSampler(s posteriorSampler) EngineOption {
	return func(e *BayesEngine) { e.sampler = s }
}

// WithFallback replaces the analytical fallback path.
func WithFallback(a approximator) EngineOption {
	return func(e *BayesEngine) { e.fallback = a }
}

// NewBayesEngine constructs an engine with the default sampler and fallback.
func NewBayesEngine(logger *slog.Logger, cfg SamplerConfig, opts ...EngineOption) *BayesEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &BayesEngine{
		logger:   logger,
		sampler:  NewPosteriorSampler(cfg),
		fallback: &ConjugateApproximator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer returns the posterior summary for the two observation sets.
//
// Empty inputs fail immediately with ErrEmptyObservations: that is a caller
// bug, not an environment issue, and the fallback is never attempted for it.
// Context cancellation propagates unchanged. Every other sampler failure is
// absorbed by the fallback; only a failure of the fallback itself reaches the
// caller, as a FatalInferenceError.
func (e *BayesEngine) Infer(ctx context.Context, control, treatment models.Observations) (models.PosteriorSummary, error) {
	if len(control) == 0 {
		return models.PosteriorSummary{}, fmt.Errorf("control: %w", ErrEmptyObservations)
	}
	if len(treatment) == 0 {
		return models.PosteriorSummary{}, fmt.Errorf("treatment: %w", ErrEmptyObservations)
	}

	e.logger.Info("running bayesian A/B test",
		slog.Int("control_n", len(control)),
		slog.Int("treatment_n", len(treatment)))

	summary, samplerErr := e.sampler.Sample(ctx, control, treatment)
	if samplerErr == nil {
		e.logResult(summary)
		return summary, nil
	}
	if errors.Is(samplerErr, context.Canceled) || errors.Is(samplerErr, context.DeadlineExceeded) {
		return models.PosteriorSummary{}, samplerErr
	}

	if isBackendFailure(samplerErr) {
		e.logger.Warn("sampler backend unavailable, using analytical approximation",
			slog.String("error", truncate(samplerErr.Error(), errorDetailLimit)))
	} else {
		e.logger.Warn("sampling failed, using analytical approximation",
			slog.String("error", truncate(samplerErr.Error(), errorDetailLimit)))
	}

	summary, fallbackErr := e.fallback.Approximate(control, treatment)
	if fallbackErr != nil {
		return models.PosteriorSummary{}, &FatalInferenceError{SamplerErr: samplerErr, FallbackErr: fallbackErr}
	}
	e.logResult(summary)
	return summary, nil
}

func (e *BayesEngine) logResult(summary models.PosteriorSummary) {
	e.logger.Info("bayesian analysis complete",
		slog.Float64("lift", summary.LiftMean),
		slog.Float64("prob_treatment_better", summary.ProbTreatmentBetter),
		slog.String("method", string(summary.Method)))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
