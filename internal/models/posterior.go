package models

// InferenceMethod records which inference path produced a posterior summary.
type InferenceMethod string

const (
	// MethodMCMC marks results from the single-chain posterior sampler.
	MethodMCMC InferenceMethod = "mcmc"
	// MethodConjugate marks results from the analytical Beta-Binomial fallback.
	MethodConjugate InferenceMethod = "conjugate"
)

// PosteriorSummary is the canonical result of a Bayesian A/B comparison.
// Instances are created fresh per inference call and never mutated afterwards.
type PosteriorSummary struct {
	// LiftMean is E[p_treatment - p_control] under the posterior.
	LiftMean float64
	// ProbTreatmentBetter is P(p_treatment > p_control), always in [0, 1].
	ProbTreatmentBetter float64
	// CI95 bounds the middle 95% of the lift distribution, lower then upper.
	CI95 [2]float64
	// Method identifies the inference path that produced this summary.
	Method InferenceMethod
}
