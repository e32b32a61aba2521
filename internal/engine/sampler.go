package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/liftstack/lift-engine/internal/models"
)

const (
	// DefaultSamples is the number of retained posterior draws per chain.
	DefaultSamples = 2000
	// DefaultTune is the number of warmup steps used for step-size adaptation.
	DefaultTune = 1000

	defaultTargetAccept = 0.8
	minStepSize         = 1e-3
	maxStepSize         = 10.0
)

// SamplerConfig controls the posterior sampler. Zero values select defaults.
type SamplerConfig struct {
	Samples      int
	Tune         int
	TargetAccept float64
	Mode         BackendMode
	// Src seeds the chain; nil means a fresh non-deterministic seed per call.
	Src rand.Source
}

func (c SamplerConfig) withDefaults() SamplerConfig {
	if c.Samples <= 0 {
		c.Samples = DefaultSamples
	}
	if c.Tune <= 0 {
		c.Tune = DefaultTune
	}
	if c.TargetAccept <= 0 || c.TargetAccept >= 1 {
		c.TargetAccept = defaultTargetAccept
	}
	if c.Mode == "" {
		c.Mode = BackendFastRun
	}
	return c
}

// PosteriorSampler draws from the joint posterior of the two conversion
// probabilities with a single-chain adaptive Metropolis walk on the logit
// scale: one worker, one chain, no convergence diagnostics, no progress
// output. The model matches the conjugate approximator exactly: independent
// Beta(1,1) priors with Bernoulli likelihoods.
type PosteriorSampler struct {
	cfg SamplerConfig
}

// NewPosteriorSampler constructs a sampler, filling config defaults.
func NewPosteriorSampler(cfg SamplerConfig) *PosteriorSampler {
	return &PosteriorSampler{cfg: cfg.withDefaults()}
}

// Sample runs both chains under a scoped backend-mode override and summarises
// the paired lift draws.
func (s *PosteriorSampler) Sample(ctx context.Context, control, treatment models.Observations) (models.PosteriorSummary, error) {
	if len(control) == 0 || len(treatment) == 0 {
		return models.PosteriorSummary{}, fmt.Errorf("sampler: %w", ErrEmptyObservations)
	}

	var summary models.PosteriorSummary
	err := withBackendMode(s.cfg.Mode, func(mode BackendMode) error {
		rng := s.newRNG()

		chainControl, err := s.runChain(ctx, rng, mode, control)
		if err != nil {
			return err
		}
		chainTreatment, err := s.runChain(ctx, rng, mode, treatment)
		if err != nil {
			return err
		}

		lifts := make([]float64, len(chainControl))
		positive := 0
		for i := range lifts {
			lifts[i] = chainTreatment[i] - chainControl[i]
			if lifts[i] > 0 {
				positive++
			}
		}
		sort.Float64s(lifts)

		summary = models.PosteriorSummary{
			LiftMean:            stat.Mean(lifts, nil),
			ProbTreatmentBetter: float64(positive) / float64(len(lifts)),
			CI95: [2]float64{
				stat.Quantile(0.025, stat.Empirical, lifts, nil),
				stat.Quantile(0.975, stat.Empirical, lifts, nil),
			},
			Method: models.MethodMCMC,
		}
		return nil
	})
	if err != nil {
		return models.PosteriorSummary{}, err
	}
	return summary, nil
}

func (s *PosteriorSampler) newRNG() *rand.Rand {
	if s.cfg.Src != nil {
		return rand.New(s.cfg.Src)
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// runChain samples one variant's conversion probability. The walk happens on
// the logit scale so proposals never leave (0,1); the uniform prior's Jacobian
// folds into the exponents, giving log density (s+1)log(p) + (f+1)log(1-p).
func (s *PosteriorSampler) runChain(ctx context.Context, rng *rand.Rand, mode BackendMode, obs models.Observations) ([]float64, error) {
	logPost := logPosterior(mode, obs)

	theta := logit(initialRate(obs))
	current := logPost(theta)
	if math.IsNaN(current) {
		return nil, &BackendError{Mode: string(mode), Err: fmt.Errorf("non-finite log density at initial point")}
	}

	step := 0.5
	draws := make([]float64, 0, s.cfg.Samples)
	total := s.cfg.Tune + s.cfg.Samples

	for i := 0; i < total; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("sampler: %w", err)
			}
		}

		proposal := theta + step*rng.NormFloat64()
		candidate := logPost(proposal)

		accept := math.Exp(math.Min(0, candidate-current))
		if rng.Float64() < accept {
			theta, current = proposal, candidate
		}

		if i < s.cfg.Tune {
			// Robbins-Monro adaptation of the step size toward the target
			// acceptance rate, with a diminishing learning rate.
			step *= math.Exp((accept - s.cfg.TargetAccept) / math.Sqrt(float64(i+1)))
			if step < minStepSize {
				step = minStepSize
			} else if step > maxStepSize {
				step = maxStepSize
			}
			continue
		}
		draws = append(draws, sigmoid(theta))
	}

	return draws, nil
}

// logPosterior builds the log density evaluator for the selected backend mode.
// Both modes compute the same posterior; fast-run uses the fused sufficient
// statistics while safe-run walks the observations one by one.
func logPosterior(mode BackendMode, obs models.Observations) func(float64) float64 {
	if mode == BackendSafeRun {
		return func(theta float64) float64 {
			p := sigmoid(theta)
			if p <= 0 || p >= 1 {
				return math.Inf(-1)
			}
			density := math.Log(p) + math.Log(1-p) // prior Jacobian
			for _, outcome := range obs {
				if outcome == 1 {
					density += math.Log(p)
				} else {
					density += math.Log(1 - p)
				}
			}
			return density
		}
	}

	successes := float64(obs.Successes())
	failures := float64(obs.Failures())
	return func(theta float64) float64 {
		p := sigmoid(theta)
		if p <= 0 || p >= 1 {
			return math.Inf(-1)
		}
		return (successes+1)*math.Log(p) + (failures+1)*math.Log(1-p)
	}
}

// initialRate starts the chain at the posterior mean, which stays inside (0,1)
// even for all-zero or all-one data.
func initialRate(obs models.Observations) float64 {
	return (float64(obs.Successes()) + 1) / (float64(len(obs)) + 2)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
