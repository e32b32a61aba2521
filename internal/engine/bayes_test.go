package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/liftstack/lift-engine/internal/models"
)

type stubSampler struct {
	summary models.PosteriorSummary
	err     error
	calls   int
}

func (s *stubSampler) Sample(_ context.Context, _, _ models.Observations) (models.PosteriorSummary, error) {
	s.calls++
	return s.summary, s.err
}

type stubApproximator struct {
	summary models.PosteriorSummary
	err     error
	calls   int
}

func (s *stubApproximator) Approximate(_, _ models.Observations) (models.PosteriorSummary, error) {
	s.calls++
	return s.summary, s.err
}

func TestInferEmptyObservations(t *testing.T) {
	sampler := &stubSampler{}
	fallback := &stubApproximator{}
	e := NewBayesEngine(nil, SamplerConfig{}, WithSampler(sampler), WithFallback(fallback))

	if _, err := e.Infer(context.Background(), nil, repeatObs(1, 3)); !errors.Is(err, ErrEmptyObservations) {
		t.Fatalf("expected ErrEmptyObservations for empty control, got %v", err)
	}
	if _, err := e.Infer(context.Background(), repeatObs(1, 3), nil); !errors.Is(err, ErrEmptyObservations) {
		t.Fatalf("expected ErrEmptyObservations for empty treatment, got %v", err)
	}
	if sampler.calls != 0 || fallback.calls != 0 {
		t.Fatalf("validation errors must not reach either inference path")
	}
}

func TestInferSamplerSuccess(t *testing.T) {
	want := models.PosteriorSummary{
		LiftMean:            0.02,
		ProbTreatmentBetter: 0.9,
		CI95:                [2]float64{0.001, 0.04},
		Method:              models.MethodMCMC,
	}
	fallback := &stubApproximator{}
	e := NewBayesEngine(nil, SamplerConfig{}, WithSampler(&stubSampler{summary: want}), WithFallback(fallback))

	got, err := e.Infer(context.Background(), repeatObs(1, 10), repeatObs(1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected sampler summary, got %+v", got)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not run when sampling succeeds")
	}
}

func TestInferFallbackOnBackendFailure(t *testing.T) {
	sampler := &stubSampler{err: &BackendError{Mode: "fast-run", Err: fmt.Errorf("compilation failed")}}
	e := NewBayesEngine(nil, SamplerConfig{},
		WithSampler(sampler),
		WithFallback(&ConjugateApproximator{Src: rand.NewPCG(23, 24)}))

	summary, err := e.Infer(context.Background(), repeatObs(0, 200), repeatObs(1, 200))
	if err != nil {
		t.Fatalf("fallback should absorb the backend failure, got %v", err)
	}
	checkSummaryInvariants(t, summary)
	if summary.Method != models.MethodConjugate {
		t.Fatalf("expected conjugate fallback result, got method %s", summary.Method)
	}
}

func TestInferFallbackOnSignatureMatch(t *testing.T) {
	// A bare error carrying a known failure signature is still recognised.
	sampler := &stubSampler{err: fmt.Errorf("g++ not available in 64-bit mode")}
	e := NewBayesEngine(nil, SamplerConfig{},
		WithSampler(sampler),
		WithFallback(&ConjugateApproximator{Src: rand.NewPCG(25, 26)}))

	summary, err := e.Infer(context.Background(), repeatObs(1, 50), repeatObs(0, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkSummaryInvariants(t, summary)
}

func TestInferFallbackOnUnspecifiedError(t *testing.T) {
	sampler := &stubSampler{err: fmt.Errorf("chain diverged")}
	fallback := &stubApproximator{summary: models.PosteriorSummary{
		ProbTreatmentBetter: 0.4,
		CI95:                [2]float64{-0.1, 0.05},
		Method:              models.MethodConjugate,
	}}
	e := NewBayesEngine(nil, SamplerConfig{}, WithSampler(sampler), WithFallback(fallback))

	summary, err := e.Infer(context.Background(), repeatObs(1, 5), repeatObs(0, 5))
	if err != nil {
		t.Fatalf("any sampler error must fall back, got %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fallback.calls)
	}
	checkSummaryInvariants(t, summary)
}

func TestInferFatalWhenBothPathsFail(t *testing.T) {
	sampler := &stubSampler{err: fmt.Errorf("compilation failed")}
	fallback := &stubApproximator{err: fmt.Errorf("draw count -1 is invalid")}
	e := NewBayesEngine(nil, SamplerConfig{}, WithSampler(sampler), WithFallback(fallback))

	_, err := e.Infer(context.Background(), repeatObs(1, 5), repeatObs(0, 5))
	var fatal *FatalInferenceError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalInferenceError, got %v", err)
	}
	if fatal.SamplerErr == nil || fatal.FallbackErr == nil {
		t.Fatalf("fatal error must carry both causes: %+v", fatal)
	}
}

func TestInferContextCancellationPropagates(t *testing.T) {
	sampler := &stubSampler{err: fmt.Errorf("sampler: %w", context.Canceled)}
	fallback := &stubApproximator{}
	e := NewBayesEngine(nil, SamplerConfig{}, WithSampler(sampler), WithFallback(fallback))

	_, err := e.Infer(context.Background(), repeatObs(1, 5), repeatObs(0, 5))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("cancellation must not trigger the fallback")
	}
}

func TestInferEndToEndDefaults(t *testing.T) {
	// Default wiring: real sampler, real fallback.
	e := NewBayesEngine(nil, SamplerConfig{Samples: 500, Tune: 500, Src: rand.NewPCG(27, 28)})

	summary, err := e.Infer(context.Background(), mixedObs(80, 920), mixedObs(110, 890))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkSummaryInvariants(t, summary)
	if summary.Method != models.MethodMCMC {
		t.Fatalf("healthy environment should use the sampler, got %s", summary.Method)
	}
}
