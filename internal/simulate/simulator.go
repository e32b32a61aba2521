// Package simulate generates synthetic user responses for experiment variants.
package simulate

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/liftstack/lift-engine/internal/models"
)

const (
	// DefaultBaseRate is the baseline conversion rate for an unremarkable
	// variant.
	DefaultBaseRate = 0.08

	greenCTABonus = 0.015
	discountBonus = 0.02
	discountFloor = 10
)

// Simulator draws Bernoulli conversion outcomes for a variant configuration.
type Simulator struct {
	// BaseRate overrides DefaultBaseRate when positive.
	BaseRate float64
	// Src seeds the generator for reproducible runs.
	Src rand.Source
}

// ConversionRate derives the effective conversion rate for a variant: the base
// rate plus bonuses for a green call-to-action and a meaningful discount,
// clamped to [0, 1].
func (s *Simulator) ConversionRate(variant models.Variant) float64 {
	rate := s.BaseRate
	if rate <= 0 {
		rate = DefaultBaseRate
	}
	if variant.CTAColor() == "green" {
		rate += greenCTABonus
	}
	if variant.Discount() >= discountFloor {
		rate += discountBonus
	}
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return rate
}

// SimulateUsers draws n binary conversion outcomes for the variant.
func (s *Simulator) SimulateUsers(variant models.Variant, n int) (models.Observations, error) {
	if n <= 0 {
		return nil, fmt.Errorf("simulate: number of users must be positive, got %d", n)
	}

	dist := distuv.Bernoulli{P: s.ConversionRate(variant), Src: s.Src}
	obs := make(models.Observations, n)
	for i := range obs {
		obs[i] = uint8(dist.Rand())
	}
	return obs, nil
}
