// Package insights mines the experiment history for treatment attributes that
// keep winning.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/liftstack/lift-engine/internal/models"
)

// Store abstracts persistence for mined insights.
type Store interface {
	StoreInsights(ctx context.Context, insights []models.AttributeInsight) error
}

// Miner aggregates finished experiments into per-attribute ship statistics.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine aggregates records by treatment attribute ("key=value") and returns
// insights sorted by ship rate. When a store is configured the result is
// persisted; persistence failures are logged, not returned.
func (m *Miner) Mine(ctx context.Context, records []models.ExperimentRecord) ([]models.AttributeInsight, error) {
	if len(records) == 0 {
		return nil, nil
	}

	aggregates := make(map[string]*attributeAggregate)
	for _, record := range records {
		for key, value := range record.Design.Treatment {
			attribute := fmt.Sprintf("%s=%v", key, value)
			agg := ensureAggregate(aggregates, attribute)
			agg.count++
			agg.liftSum += record.Posterior.LiftMean
			if record.Decision == models.DecisionShip {
				agg.ships++
			}
			if record.CreatedAt.After(agg.lastSeen) {
				agg.lastSeen = record.CreatedAt
			}
		}
	}

	insights := make([]models.AttributeInsight, 0, len(aggregates))
	for attribute, agg := range aggregates {
		insights = append(insights, models.AttributeInsight{
			Attribute:   attribute,
			Experiments: agg.count,
			Ships:       agg.ships,
			ShipRate:    float64(agg.ships) / float64(agg.count),
			MeanLift:    agg.liftSum / float64(agg.count),
			LastSeen:    agg.lastSeen,
		})
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].ShipRate != insights[j].ShipRate {
			return insights[i].ShipRate > insights[j].ShipRate
		}
		if insights[i].Experiments != insights[j].Experiments {
			return insights[i].Experiments > insights[j].Experiments
		}
		return insights[i].Attribute < insights[j].Attribute
	})

	if m.store != nil && len(insights) > 0 {
		if err := m.store.StoreInsights(ctx, insights); err != nil {
			m.logger.Warn("insight store failed", slog.Any("error", err))
		}
	}

	return insights, nil
}

type attributeAggregate struct {
	count    int
	ships    int
	liftSum  float64
	lastSeen time.Time
}

func ensureAggregate(m map[string]*attributeAggregate, attribute string) *attributeAggregate {
	agg, ok := m[attribute]
	if !ok {
		agg = &attributeAggregate{}
		m[attribute] = agg
	}
	return agg
}
