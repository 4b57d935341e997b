package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

const defaultReadingsTable = "telemetry_readings"

// ReadingRepository is a SQLite implementation for telemetry readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository with default table name.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// EnsureSchema creates the readings table and its timestamp index.
func (r *ReadingRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("telemetry repo: nil db")
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	power_load_kw REAL NOT NULL,
	fuel_rate_lph REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'ON'
);
CREATE INDEX IF NOT EXISTS idx_%s_ts ON %s (ts)`, r.table, r.table, r.table)

	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Insert stores one reading and returns it with the assigned id. The
// returned timestamp is truncated to the stored second precision.
func (r *ReadingRepository) Insert(ctx context.Context, reading telemetry.Reading) (telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return telemetry.Reading{}, errors.New("telemetry repo: nil db")
	}
	if err := reading.Validate(); err != nil {
		return telemetry.Reading{}, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (ts, power_load_kw, fuel_rate_lph, status)
VALUES (?, ?, ?, ?)`, r.table)

	res, err := r.db.ExecContext(ctx, query,
		formatTime(reading.Timestamp),
		reading.PowerLoadKW,
		reading.FuelRateLPH,
		reading.Status,
	)
	if err != nil {
		return telemetry.Reading{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return telemetry.Reading{}, err
	}
	reading.ID = id
	reading.Timestamp = reading.Timestamp.UTC().Truncate(time.Second)
	return reading, nil
}

// InsertBatch stores readings in one transaction. Any invalid reading
// rolls back the whole batch.
func (r *ReadingRepository) InsertBatch(ctx context.Context, readings []telemetry.Reading) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("telemetry repo: nil db")
	}
	if len(readings) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (ts, power_load_kw, fuel_rate_lph, status)
VALUES (?, ?, ?, ?)`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, reading := range readings {
		if err := reading.Validate(); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			formatTime(reading.Timestamp),
			reading.PowerLoadKW,
			reading.FuelRateLPH,
			reading.Status,
		); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(readings), nil
}
