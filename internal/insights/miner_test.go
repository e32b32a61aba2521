package insights

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/liftstack/lift-engine/internal/models"
)

type fakeStore struct {
	stored [][]models.AttributeInsight
	err    error
}

func (s *fakeStore) StoreInsights(_ context.Context, insights []models.AttributeInsight) error {
	s.stored = append(s.stored, insights)
	return s.err
}

func record(color string, discount int, decision models.Decision, lift float64, at time.Time) models.ExperimentRecord {
	return models.ExperimentRecord{
		Design: models.ExperimentDesign{
			Control:    models.Variant{"cta_color": "blue", "discount": 0},
			Treatment:  models.Variant{"cta_color": color, "discount": discount},
			SampleSize: 1000,
			Metric:     "conversion_rate",
		},
		Posterior: models.PosteriorSummary{LiftMean: lift},
		Decision:  decision,
		CreatedAt: at,
	}
}

func TestMineAggregatesByAttribute(t *testing.T) {
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	records := []models.ExperimentRecord{
		record("green", 10, models.DecisionShip, 0.4, t0),
		record("green", 15, models.DecisionShip, 0.2, t0.Add(time.Hour)),
		record("red", 10, models.DecisionRollback, -0.1, t0.Add(2*time.Hour)),
	}

	miner := NewMiner(nil, nil)
	insights, err := miner.Mine(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byAttr := make(map[string]models.AttributeInsight, len(insights))
	for _, in := range insights {
		byAttr[in.Attribute] = in
	}

	green, ok := byAttr["cta_color=green"]
	if !ok {
		t.Fatalf("missing cta_color=green insight: %v", byAttr)
	}
	if green.Experiments != 2 || green.Ships != 2 || green.ShipRate != 1 {
		t.Fatalf("unexpected green aggregate: %+v", green)
	}
	if math.Abs(green.MeanLift-0.3) > 1e-12 {
		t.Fatalf("unexpected green mean lift %f", green.MeanLift)
	}
	if !green.LastSeen.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected green last seen %v", green.LastSeen)
	}

	discount10, ok := byAttr["discount=10"]
	if !ok {
		t.Fatalf("missing discount=10 insight")
	}
	if discount10.Experiments != 2 || discount10.Ships != 1 || discount10.ShipRate != 0.5 {
		t.Fatalf("unexpected discount aggregate: %+v", discount10)
	}
}

func TestMineSortsByShipRate(t *testing.T) {
	t0 := time.Now()
	records := []models.ExperimentRecord{
		record("red", 5, models.DecisionIterate, 0.0, t0),
		record("green", 20, models.DecisionShip, 0.3, t0),
	}

	insights, err := NewMiner(nil, nil).Mine(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) == 0 {
		t.Fatalf("expected insights")
	}
	for i := 1; i < len(insights); i++ {
		prev, cur := insights[i-1], insights[i]
		if prev.ShipRate < cur.ShipRate {
			t.Fatalf("insights not sorted by ship rate: %f before %f", prev.ShipRate, cur.ShipRate)
		}
		if prev.ShipRate == cur.ShipRate && prev.Experiments < cur.Experiments {
			t.Fatalf("ties not broken by experiment count")
		}
	}
	if insights[0].Attribute != "cta_color=green" && insights[0].Attribute != "discount=20" {
		t.Fatalf("shipped attributes should sort first, got %s", insights[0].Attribute)
	}
}

func TestMineEmptyRecords(t *testing.T) {
	store := &fakeStore{}
	insights, err := NewMiner(nil, store).Mine(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights != nil {
		t.Fatalf("expected no insights, got %v", insights)
	}
	if len(store.stored) != 0 {
		t.Fatalf("store must not be called for empty input")
	}
}

func TestMinePersistsAndToleratesStoreFailure(t *testing.T) {
	records := []models.ExperimentRecord{
		record("green", 10, models.DecisionShip, 0.5, time.Now()),
	}

	store := &fakeStore{}
	insights, err := NewMiner(nil, store).Mine(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.stored) != 1 || len(store.stored[0]) != len(insights) {
		t.Fatalf("insights not persisted")
	}

	failing := &fakeStore{err: fmt.Errorf("disk full")}
	if _, err := NewMiner(nil, failing).Mine(context.Background(), records); err != nil {
		t.Fatalf("store failures must not fail mining: %v", err)
	}
}
