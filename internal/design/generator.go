// Package design produces experiment designs for the workflow. The generation
// of designs by an external agentic process is out of scope; this package
// defines the contract and a catalog-backed default.
package design

import (
	"context"
	"math/rand/v2"

	"github.com/liftstack/lift-engine/internal/models"
)

// DefaultSampleSize is the per-variant sample size when none is configured.
const DefaultSampleSize = 1000

// Catalog of treatment attributes the default generator draws from. Control
// stays fixed at the baseline configuration.
var (
	ctaColors = []string{"green", "red", "orange"}
	discounts = []int{0, 5, 10, 15, 20}
)

// CatalogGenerator assembles experiment designs from a fixed variant catalog.
type CatalogGenerator struct {
	sampleSize int
	rng        *rand.Rand
}

// NewCatalogGenerator builds a generator. A nil source selects a fresh
// non-deterministic seed; sampleSize <= 0 selects DefaultSampleSize.
func NewCatalogGenerator(sampleSize int, src rand.Source) *CatalogGenerator {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &CatalogGenerator{sampleSize: sampleSize, rng: rand.New(src)}
}

// Generate returns a valid design with the baseline control and a treatment
// drawn from the catalog.
func (g *CatalogGenerator) Generate(ctx context.Context) (models.ExperimentDesign, error) {
	if err := ctx.Err(); err != nil {
		return models.ExperimentDesign{}, err
	}

	design := models.ExperimentDesign{
		Control: models.Variant{"cta_color": "blue", "discount": 0},
		Treatment: models.Variant{
			"cta_color": ctaColors[g.rng.IntN(len(ctaColors))],
			"discount":  discounts[g.rng.IntN(len(discounts))],
		},
		SampleSize: g.sampleSize,
		Metric:     "conversion_rate",
	}
	return design, design.Validate()
}
