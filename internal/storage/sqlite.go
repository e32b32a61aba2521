// Package storage persists experiment history and mined insights in SQLite.
// The driver is pure Go, so the binary stays portable across hosts without a
// C toolchain — the same constraint that motivates the engine's analytical
// fallback.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liftstack/lift-engine/internal/models"
	"github.com/liftstack/lift-engine/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id                    TEXT PRIMARY KEY,
    created_at            DATETIME NOT NULL,
    design                TEXT     NOT NULL,
    sample_size           INTEGER  NOT NULL,
    control_rate          REAL     NOT NULL,
    treatment_rate        REAL     NOT NULL,
    lift_mean             REAL     NOT NULL,
    prob_treatment_better REAL     NOT NULL,
    ci_low                REAL     NOT NULL,
    ci_high               REAL     NOT NULL,
    method                TEXT     NOT NULL,
    decision              TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS insights (
    attribute   TEXT PRIMARY KEY,
    experiments INTEGER  NOT NULL,
    ships       INTEGER  NOT NULL,
    ship_rate   REAL     NOT NULL,
    mean_lift   REAL     NOT NULL,
    last_seen   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_experiments_at       ON experiments(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_experiments_decision ON experiments(decision);
`

// Experiment rows older than this are pruned on startup.
const retention = 90 * 24 * time.Hour

// SQLiteStore implements the history and insight stores on a single SQLite
// file (or ":memory:").
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, applies the schema
// and prunes stale history.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, utils.NewAppError("storage.NewSQLiteStore", "open "+path, err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, utils.NewAppError("storage.NewSQLiteStore", "apply schema", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveExperiment inserts one finished experiment record.
func (s *SQLiteStore) SaveExperiment(ctx context.Context, record models.ExperimentRecord) error {
	designJSON, err := json.Marshal(record.Design)
	if err != nil {
		return utils.NewAppError("storage.SaveExperiment", "encode design", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO experiments
			(id, created_at, design, sample_size, control_rate, treatment_rate,
			 lift_mean, prob_treatment_better, ci_low, ci_high, method, decision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CreatedAt,
		string(designJSON),
		record.Design.SampleSize,
		record.ControlRate,
		record.TreatmentRate,
		record.Posterior.LiftMean,
		record.Posterior.ProbTreatmentBetter,
		record.Posterior.CI95[0],
		record.Posterior.CI95[1],
		string(record.Posterior.Method),
		string(record.Decision),
	)
	if err != nil {
		return utils.NewAppError("storage.SaveExperiment", "insert experiment", err)
	}
	return nil
}

// ListExperiments returns up to limit records, newest first.
func (s *SQLiteStore) ListExperiments(ctx context.Context, limit int) ([]models.ExperimentRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, design, control_rate, treatment_rate,
		       lift_mean, prob_treatment_better, ci_low, ci_high, method, decision
		FROM experiments
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, utils.NewAppError("storage.ListExperiments", "query experiments", err)
	}
	defer rows.Close()

	var records []models.ExperimentRecord
	for rows.Next() {
		var (
			record     models.ExperimentRecord
			designJSON string
			method     string
			decision   string
		)
		if err := rows.Scan(
			&record.ID,
			&record.CreatedAt,
			&designJSON,
			&record.ControlRate,
			&record.TreatmentRate,
			&record.Posterior.LiftMean,
			&record.Posterior.ProbTreatmentBetter,
			&record.Posterior.CI95[0],
			&record.Posterior.CI95[1],
			&method,
			&decision,
		); err != nil {
			return nil, utils.NewAppError("storage.ListExperiments", "scan row", err)
		}
		if err := json.Unmarshal([]byte(designJSON), &record.Design); err != nil {
			return nil, utils.NewAppError("storage.ListExperiments", "decode design", err)
		}
		record.Posterior.Method = models.InferenceMethod(method)
		record.Decision = models.Decision(decision)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("storage.ListExperiments", "iterate rows", err)
	}
	return records, nil
}

// StoreInsights upserts mined attribute insights.
func (s *SQLiteStore) StoreInsights(ctx context.Context, insights []models.AttributeInsight) error {
	if len(insights) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewAppError("storage.StoreInsights", "begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO insights (attribute, experiments, ships, ship_rate, mean_lift, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(attribute) DO UPDATE SET
			experiments = excluded.experiments,
			ships       = excluded.ships,
			ship_rate   = excluded.ship_rate,
			mean_lift   = excluded.mean_lift,
			last_seen   = excluded.last_seen`)
	if err != nil {
		return utils.NewAppError("storage.StoreInsights", "prepare upsert", err)
	}
	defer stmt.Close()

	for _, insight := range insights {
		if _, err := stmt.ExecContext(ctx,
			insight.Attribute,
			insight.Experiments,
			insight.Ships,
			insight.ShipRate,
			insight.MeanLift,
			insight.LastSeen,
		); err != nil {
			return utils.NewAppError("storage.StoreInsights", "upsert "+insight.Attribute, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError("storage.StoreInsights", "commit", err)
	}
	return nil
}

// ListInsights returns stored insights ordered by ship rate.
func (s *SQLiteStore) ListInsights(ctx context.Context) ([]models.AttributeInsight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attribute, experiments, ships, ship_rate, mean_lift, last_seen
		FROM insights
		ORDER BY ship_rate DESC, experiments DESC`)
	if err != nil {
		return nil, utils.NewAppError("storage.ListInsights", "query insights", err)
	}
	defer rows.Close()

	var insights []models.AttributeInsight
	for rows.Next() {
		var insight models.AttributeInsight
		if err := rows.Scan(
			&insight.Attribute,
			&insight.Experiments,
			&insight.Ships,
			&insight.ShipRate,
			&insight.MeanLift,
			&insight.LastSeen,
		); err != nil {
			return nil, utils.NewAppError("storage.ListInsights", "scan row", err)
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("storage.ListInsights", "iterate rows", err)
	}
	return insights, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention)
	// Best effort: pruning failures never block startup.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM experiments WHERE created_at < ?`, cutoff)
}
