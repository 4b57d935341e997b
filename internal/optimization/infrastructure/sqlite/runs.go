// Package sqlite persists optimization run history in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"

	_ "modernc.org/sqlite"
)

// timeLayout is the timestamp format stored in TEXT columns. At fixed
// width and second precision, lexicographic order matches chronological
// order.
const timeLayout = "2006-01-02 15:04:05"

const defaultRunsTable = "optimization_runs"

// RunRepository is a SQLite implementation for optimization run history.
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
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at TEXT NOT NULL,
	analysis_hours INTEGER NOT NULL,
	reading_count INTEGER NOT NULL,
	window_start TEXT NOT NULL,
	window_end TEXT NOT NULL,
	duration_hours INTEGER NOT NULL,
	fuel_saved_liters REAL NOT NULL,
	daily_savings_usd REAL NOT NULL,
	monthly_savings_usd REAL NOT NULL,
	recommendation TEXT NOT NULL,
	recommendation_source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%s_generated_at ON %s (generated_at)`, r.table, r.table, r.table)

	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Insert stores one run and returns it with the assigned id. Stored
// timestamps carry second precision; the returned run reflects that.
func (r *RunRepository) Insert(ctx context.Context, run application.Run) (application.Run, error) {
	if r == nil || r.db == nil {
		return application.Run{}, errors.New("optimization runs repo: nil db")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (generated_at, analysis_hours, reading_count, window_start, window_end,
	duration_hours, fuel_saved_liters, daily_savings_usd, monthly_savings_usd,
	recommendation, recommendation_source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)

	res, err := r.db.ExecContext(ctx, query,
		formatTime(run.GeneratedAt),
		run.AnalysisHours,
		run.ReadingCount,
		formatTime(run.WindowStart),
		formatTime(run.WindowEnd),
		run.DurationHours,
		run.FuelSavedLiters,
		run.DailySavingsUSD,
		run.MonthlySavingsUSD,
		run.Recommendation,
		run.RecommendationSource,
	)
	if err != nil {
		return application.Run{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return application.Run{}, err
	}
	run.ID = id
	run.GeneratedAt = run.GeneratedAt.UTC().Truncate(time.Second)
	run.WindowStart = run.WindowStart.UTC().Truncate(time.Second)
	run.WindowEnd = run.WindowEnd.UTC().Truncate(time.Second)
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

	var (
		run         application.Run
		generatedAt string
		windowStart string
		windowEnd   string
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&run.ID,
		&generatedAt,
		&run.AnalysisHours,
		&run.ReadingCount,
		&windowStart,
		&windowEnd,
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
	if run.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return application.Run{}, err
	}
	if run.WindowStart, err = parseTime(windowStart); err != nil {
		return application.Run{}, err
	}
	if run.WindowEnd, err = parseTime(windowEnd); err != nil {
		return application.Run{}, err
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
