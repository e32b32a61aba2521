package models

import (
	"fmt"
	"time"
)

// Variant is a free-form variant configuration, e.g. CTA color and discount.
type Variant map[string]any

// CTAColor returns the call-to-action color attribute, or "" when unset.
func (v Variant) CTAColor() string {
	if color, ok := v["cta_color"].(string); ok {
		return color
	}
	return ""
}

// Discount returns the discount attribute. JSON decoding yields float64,
// hand-built variants typically carry int; both are accepted.
func (v Variant) Discount() float64 {
	switch d := v["discount"].(type) {
	case float64:
		return d
	case int:
		return float64(d)
	}
	return 0
}

// ExperimentDesign describes a control/treatment experiment configuration.
type ExperimentDesign struct {
	Control    Variant `json:"control"`
	Treatment  Variant `json:"treatment"`
	SampleSize int     `json:"sample_size"`
	Metric     string  `json:"metric"`
}

// Validate checks the structural invariants of a design before it is run.
func (d ExperimentDesign) Validate() error {
	if len(d.Control) == 0 {
		return fmt.Errorf("design: control variant is empty")
	}
	if len(d.Treatment) == 0 {
		return fmt.Errorf("design: treatment variant is empty")
	}
	if d.SampleSize <= 0 {
		return fmt.Errorf("design: sample size must be positive, got %d", d.SampleSize)
	}
	if d.Metric == "" {
		return fmt.Errorf("design: metric is required")
	}
	return nil
}

// Decision is the outcome of applying the ship rule to a posterior summary.
type Decision string

const (
	DecisionShip     Decision = "SHIP"
	DecisionRollback Decision = "ROLLBACK"
	DecisionIterate  Decision = "ITERATE"
)

// ExperimentRecord captures one finished experiment cycle for history and
// insight mining.
type ExperimentRecord struct {
	ID            string
	CreatedAt     time.Time
	Design        ExperimentDesign
	ControlRate   float64
	TreatmentRate float64
	Posterior     PosteriorSummary
	Decision      Decision
}
