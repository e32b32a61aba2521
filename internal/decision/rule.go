// Package decision applies the ship/rollback/iterate threshold rule to
// posterior summaries.
package decision

import (
	"fmt"

	"github.com/liftstack/lift-engine/internal/models"
)

// Default thresholds of the ship policy.
const (
	DefaultShipThreshold     = 0.95
	DefaultRollbackThreshold = 0.60
)

// Rule compares P(treatment > control) against two ordered thresholds.
type Rule struct {
	Ship     float64
	Rollback float64
}

// NewRule validates the threshold ordering and returns a rule.
func NewRule(ship, rollback float64) (Rule, error) {
	if ship <= rollback {
		return Rule{}, fmt.Errorf("decision: ship threshold %.2f must be greater than rollback threshold %.2f", ship, rollback)
	}
	return Rule{Ship: ship, Rollback: rollback}, nil
}

// Decide maps a posterior summary to a decision: SHIP at or above the ship
// threshold, ROLLBACK at or below the rollback threshold, ITERATE in between.
func (r Rule) Decide(summary models.PosteriorSummary) (models.Decision, error) {
	if r.Ship <= r.Rollback {
		return "", fmt.Errorf("decision: invalid thresholds ship=%.2f rollback=%.2f", r.Ship, r.Rollback)
	}

	p := summary.ProbTreatmentBetter
	switch {
	case p >= r.Ship:
		return models.DecisionShip, nil
	case p <= r.Rollback:
		return models.DecisionRollback, nil
	default:
		return models.DecisionIterate, nil
	}
}
