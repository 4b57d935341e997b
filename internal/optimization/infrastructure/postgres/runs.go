// Package postgres persists optimization run history.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
)

const defaultRunsTable = "optimization_runs"

// RunRepository is a Postgres implementation for optimization run history.
type RunRepository struct {
	db    *sql.DB
	table string
}

// NewRunRepository constructs a repository with default table name.
func NewRunRepository(db *sql.DB, opts ...RunRepositoryOption) *RunRepository {
	repo := &RunRepository{db: db, table: defaultRunsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RunRepositoryOption configures the repository.
type RunRepositoryOption func(*RunRepository)

// WithRunsTable overrides the default table name.
func WithRunsTable(table string) RunRepositoryOption {
	return func(repo *RunRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// EnsureSchema creates the runs table and its timestamp index.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("optimization runs repo: nil db")
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	analysis_hours INTEGER NOT NULL,
	reading_count INTEGER NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	window_end TIMESTAMPTZ NOT NULL,
	duration_hours INTEGER NOT NULL,
	fuel_saved_liters DOUBLE PRECISION NOT NULL,
	daily_savings_usd DOUBLE PRECISION NOT NULL,
	monthly_savings_usd DOUBLE PRECISION NOT NULL,
	recommendation TEXT NOT NULL,
	recommendation_source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%s_generated_at ON %s (generated_at)`, r.table, r.table, r.table)

	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Insert stores one run and returns it with the assigned id.
func (r *RunRepository) Insert(ctx context.Context, run application.Run) (application.Run, error) {
	if r == nil || r.db == nil {
		return application.Run{}, errors.New("optimization runs repo: nil db")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (generated_at, analysis_hours, reading_count, window_start, window_end,
	duration_hours, fuel_saved_liters, daily_savings_usd, monthly_savings_usd,
	recommendation, recommendation_source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`, r.table)

	row := r.db.QueryRowContext(ctx, query,
		run.GeneratedAt.UTC(),
		run.AnalysisHours,
		run.ReadingCount,
		run.WindowStart.UTC(),
		run.WindowEnd.UTC(),
		run.DurationHours,
		run.FuelSavedLiters,
		run.DailySavingsUSD,
		run.MonthlySavingsUSD,
		run.Recommendation,
		run.RecommendationSource,
	)
	if err := row.Scan(&run.ID); err != nil {
		return application.Run{}, err
	}
	return run, nil
}

// Latest returns the most recently generated run.
func (r *RunRepository) Latest(ctx context.Context) (application.Run, error) {
	if r == nil || r.db == nil {
		return application.Run{}, errors.New("optimization runs repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, generated_at, analysis_hours, reading_count, window_start, window_end,
	duration_hours, fuel_saved_liters, daily_savings_usd, monthly_savings_usd,
	recommendation, recommendation_source
FROM %s
ORDER BY generated_at DESC, id DESC
LIMIT 1`, r.table)

	var run application.Run
	err := r.db.QueryRowContext(ctx, query).Scan(
		&run.ID,
		&run.GeneratedAt,
		&run.AnalysisHours,
		&run.ReadingCount,
		&run.WindowStart,
		&run.WindowEnd,
		&run.DurationHours,
		&run.FuelSavedLiters,
		&run.DailySavingsUSD,
		&run.MonthlySavingsUSD,
		&run.Recommendation,
		&run.RecommendationSource,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return application.Run{}, application.ErrNoRuns
	}
	if err != nil {
		return application.Run{}, err
	}
	run.GeneratedAt = run.GeneratedAt.UTC()
	run.WindowStart = run.WindowStart.UTC()
	run.WindowEnd = run.WindowEnd.UTC()
	return run, nil
}
