package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
	telemetrypostgres "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func freshStore(t *testing.T, db *sql.DB, table string) (*telemetrypostgres.ReadingRepository, *telemetrypostgres.ReadingQuery) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	repo := telemetrypostgres.NewReadingRepository(db, telemetrypostgres.WithTable(table))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repo, telemetrypostgres.NewReadingQuery(db, telemetrypostgres.WithQueryTable(table))
}

func TestReadingStore_Postgres(t *testing.T) {
	db := openPostgres(t)
	repo, query := freshStore(t, db, "readings_it")
	ctx := context.Background()

	base := time.Date(2026, time.January, 21, 9, 0, 0, 0, time.UTC)

	stored, err := repo.Insert(ctx, telemetry.Reading{
		Timestamp:   base,
		PowerLoadKW: 120.5,
		FuelRateLPH: 36.15,
		Status:      telemetry.StatusOn,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.ID == 0 {
		t.Fatal("expected assigned id")
	}

	count, err := repo.InsertBatch(ctx, []telemetry.Reading{
		{Timestamp: base.Add(10 * time.Minute), PowerLoadKW: 95, FuelRateLPH: 28.5, Status: telemetry.StatusOn},
		{Timestamp: base.Add(20 * time.Minute), PowerLoadKW: 60, FuelRateLPH: 18, Status: telemetry.StatusOff},
	})
	if err != nil {
		t.Fatalf("insert batch: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 batch inserts, got %d", count)
	}

	readings, err := query.Range(ctx, base, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	if readings[0].PowerLoadKW != 120.5 || readings[2].PowerLoadKW != 60 {
		t.Fatalf("unexpected order: %v .. %v", readings[0].PowerLoadKW, readings[2].PowerLoadKW)
	}
	if !readings[0].Timestamp.Equal(base) {
		t.Fatalf("timestamp mismatch: got %s want %s", readings[0].Timestamp, base)
	}

	latest, err := query.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.PowerLoadKW != 60 || latest.Status != telemetry.StatusOff {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	stats, err := query.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 {
		t.Fatalf("expected count 3, got %d", stats.Count)
	}
	wantAvg := (120.5 + 95 + 60) / 3
	if math.Abs(stats.AvgPowerKW-wantAvg) > 1e-9 {
		t.Fatalf("avg power mismatch: got %v want %v", stats.AvgPowerKW, wantAvg)
	}
	if !stats.First.Equal(base) || !stats.Last.Equal(base.Add(20*time.Minute)) {
		t.Fatalf("unexpected bounds %s .. %s", stats.First, stats.Last)
	}
}

func TestReadingStore_PostgresEmpty(t *testing.T) {
	db := openPostgres(t)
	_, query := freshStore(t, db, "readings_it_empty")
	ctx := context.Background()

	if _, err := query.Latest(ctx); !errors.Is(err, telemetry.ErrNoReadings) {
		t.Fatalf("expected ErrNoReadings, got %v", err)
	}
	stats, err := query.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 {
		t.Fatalf("expected zero count, got %d", stats.Count)
	}
}
