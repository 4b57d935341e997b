package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

// ReadingQuery is a SQLite query implementation.
type ReadingQuery struct {
	db    *sql.DB
	table string
}

// NewReadingQuery constructs a query with default table name.
func NewReadingQuery(db *sql.DB, opts ...QueryOption) *ReadingQuery {
	query := &ReadingQuery{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the reading query.
type QueryOption func(*ReadingQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *ReadingQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// Range returns readings within [start, end] ordered by timestamp.
func (q *ReadingQuery) Range(ctx context.Context, start, end time.Time) ([]telemetry.Reading, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("telemetry query: nil db")
	}
	if start.IsZero() || end.IsZero() {
		return nil, errors.New("telemetry query: invalid arguments")
	}

	query := fmt.Sprintf(`
SELECT id, ts, power_load_kw, fuel_rate_lph, status
FROM %s
WHERE ts >= ?
	AND ts <= ?
ORDER BY ts ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, formatTime(start), formatTime(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]telemetry.Reading, 0)
	for rows.Next() {
		var (
			reading telemetry.Reading
			ts      string
		)
		if err := rows.Scan(
			&reading.ID,
			&ts,
			&reading.PowerLoadKW,
			&reading.FuelRateLPH,
			&reading.Status,
		); err != nil {
			return nil, err
		}
		if reading.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// Latest returns the most recent reading.
func (q *ReadingQuery) Latest(ctx context.Context) (telemetry.Reading, error) {
	if q == nil || q.db == nil {
		return telemetry.Reading{}, errors.New("telemetry query: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, ts, power_load_kw, fuel_rate_lph, status
FROM %s
ORDER BY ts DESC
LIMIT 1`, q.table)

	var (
		reading telemetry.Reading
		ts      string
	)
	err := q.db.QueryRowContext(ctx, query).Scan(
		&reading.ID,
		&ts,
		&reading.PowerLoadKW,
		&reading.FuelRateLPH,
		&reading.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.Reading{}, telemetry.ErrNoReadings
	}
	if err != nil {
		return telemetry.Reading{}, err
	}
	if reading.Timestamp, err = parseTime(ts); err != nil {
		return telemetry.Reading{}, err
	}
	return reading, nil
}

// Stats returns aggregate statistics over the stored history. An empty
// table yields a zero-count result, not an error.
func (q *ReadingQuery) Stats(ctx context.Context) (telemetry.Stats, error) {
	if q == nil || q.db == nil {
		return telemetry.Stats{}, errors.New("telemetry query: nil db")
	}

	query := fmt.Sprintf(`
SELECT COUNT(*), MIN(ts), MAX(ts), AVG(power_load_kw), AVG(fuel_rate_lph)
FROM %s`, q.table)

	var (
		stats    telemetry.Stats
		first    sql.NullString
		last     sql.NullString
		avgPower sql.NullFloat64
		avgFuel  sql.NullFloat64
	)
	if err := q.db.QueryRowContext(ctx, query).Scan(&stats.Count, &first, &last, &avgPower, &avgFuel); err != nil {
		return telemetry.Stats{}, err
	}
	if first.Valid {
		t, err := parseTime(first.String)
		if err != nil {
			return telemetry.Stats{}, err
		}
		stats.First = t
	}
	if last.Valid {
		t, err := parseTime(last.String)
		if err != nil {
			return telemetry.Stats{}, err
		}
		stats.Last = t
	}
	if avgPower.Valid {
		stats.AvgPowerKW = avgPower.Float64
	}
	if avgFuel.Valid {
		stats.AvgFuelLPH = avgFuel.Float64
	}
	return stats, nil
}
