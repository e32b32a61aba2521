package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/liftstack/lift-engine/internal/models"
)

// DefaultDraws is the number of Monte Carlo draws used to estimate the lift
// distribution of the conjugate posterior.
const DefaultDraws = 10000

// ConjugateApproximator computes a Bayesian A/B comparison in closed form:
// each variant's conversion probability gets a Beta(1+successes, 1+failures)
// posterior, the conjugate update of a uniform Beta(1,1) prior with a
// Bernoulli likelihood. The lift distribution has no closed form, so its
// probability mass and credible interval are estimated from independent draws.
//
// It estimates the exact model of the posterior sampler, which is what makes
// it a valid substitute when sampling is unavailable.
type ConjugateApproximator struct {
	// Draws is the number of posterior draws per variant; DefaultDraws when
	// zero, negative values are a configuration error.
	Draws int
	// Src seeds the pseudo-random generator. Left nil, results vary between
	// calls; callers must not assume reproducibility.
	Src rand.Source
}

// Approximate returns the posterior summary for the two observation sets.
// Given valid non-empty inputs it cannot fail: the Beta(1,1) prior is well
// defined even for all-zero or all-one data.
func (a *ConjugateApproximator) Approximate(control, treatment models.Observations) (models.PosteriorSummary, error) {
	draws := a.Draws
	if draws == 0 {
		draws = DefaultDraws
	}
	if draws < 0 {
		return models.PosteriorSummary{}, fmt.Errorf("conjugate approximator: draw count %d is invalid", a.Draws)
	}
	if len(control) == 0 || len(treatment) == 0 {
		return models.PosteriorSummary{}, fmt.Errorf("conjugate approximator: %w", ErrEmptyObservations)
	}

	posteriorControl := betaPosterior(control, a.Src)
	posteriorTreatment := betaPosterior(treatment, a.Src)

	lifts := make([]float64, draws)
	positive := 0
	for i := range lifts {
		lift := posteriorTreatment.Rand() - posteriorControl.Rand()
		lifts[i] = lift
		if lift > 0 {
			positive++
		}
	}
	sort.Float64s(lifts)

	return models.PosteriorSummary{
		// The lift mean is exact: difference of the Beta posterior means.
		LiftMean:            posteriorTreatment.Mean() - posteriorControl.Mean(),
		ProbTreatmentBetter: float64(positive) / float64(draws),
		CI95: [2]float64{
			stat.Quantile(0.025, stat.Empirical, lifts, nil),
			stat.Quantile(0.975, stat.Empirical, lifts, nil),
		},
		Method: models.MethodConjugate,
	}, nil
}

// betaPosterior applies the conjugate update for one variant.
func betaPosterior(obs models.Observations, src rand.Source) distuv.Beta {
	return distuv.Beta{
		Alpha: 1 + float64(obs.Successes()),
		Beta:  1 + float64(obs.Failures()),
		Src:   src,
	}
}
