package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

// Seeder backfills synthetic reading history for first-run dashboards.
type Seeder struct {
	generator *Generator
	repo      telemetry.ReadingRepository
	query     telemetry.ReadingQuery
	logger    *log.Logger
}

// NewSeeder constructs a seeder.
func NewSeeder(generator *Generator, repo telemetry.ReadingRepository, query telemetry.ReadingQuery, logger *log.Logger) (*Seeder, error) {
	if generator == nil {
		return nil, errors.New("simulator seeder: nil generator")
	}
	if repo == nil {
		return nil, errors.New("simulator seeder: nil repository")
	}
	if query == nil {
		return nil, errors.New("simulator seeder: nil query")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Seeder{generator: generator, repo: repo, query: query, logger: logger}, nil
}

// Seed backfills hours of history at the simulation interval. It is a
// no-op when any telemetry already exists. Backfill writes bypass the
// live event fan-out.
func (s *Seeder) Seed(ctx context.Context, hours int) (int, error) {
	if hours <= 0 {
		return 0, nil
	}

	_, err := s.query.Latest(ctx)
	if err == nil {
		s.logger.Printf("simulator seeder: telemetry exists, skipping backfill")
		return 0, nil
	}
	if !errors.Is(err, telemetry.ErrNoReadings) {
		return 0, fmt.Errorf("simulator seeder: check existing data: %w", err)
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	interval := s.generator.cfg.Interval()

	readings := make([]telemetry.Reading, 0, int(end.Sub(start)/interval)+1)
	for ts := start; !ts.After(end); ts = ts.Add(interval) {
		readings = append(readings, s.generator.ReadingAt(ts))
	}

	count, err := s.repo.InsertBatch(ctx, readings)
	if err != nil {
		return 0, fmt.Errorf("simulator seeder: insert backfill: %w", err)
	}
	s.logger.Printf("simulator seeder: stored %d synthetic readings covering %dh", count, hours)
	return count, nil
}
