// Command perf_seed backfills synthetic generator telemetry for load and
// query testing. It writes either straight into the database or through
// the batch ingest endpoint of a running instance.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/simulator"
	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
	telemetrypostgres "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/postgres"
	telemetrysqlite "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/sqlite"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn             string
	baseURL         string
	token           string
	startDate       string
	days            int
	intervalSeconds int
	minPowerKW      float64
	maxPowerKW      float64
	fuelFactor      float64
	batchSize       int
}

func main() {
	cfg := parseConfig()
	if cfg.days <= 0 {
		log.Fatal("days must be > 0")
	}
	if cfg.intervalSeconds < 1 {
		log.Fatal("interval-seconds must be >= 1")
	}
	if cfg.batchSize <= 0 {
		log.Fatal("batch-size must be > 0")
	}

	start, err := parseStartDate(cfg.startDate)
	if err != nil {
		log.Fatalf("invalid start-date: %v", err)
	}
	end := start.AddDate(0, 0, cfg.days)
	interval := time.Duration(cfg.intervalSeconds) * time.Second

	generator := simulator.NewGenerator(simulator.Config{
		IntervalSeconds: cfg.intervalSeconds,
		MinPowerKW:      cfg.minPowerKW,
		MaxPowerKW:      cfg.maxPowerKW,
		FuelFactor:      cfg.fuelFactor,
	})

	ctx := context.Background()

	var total int
	if cfg.baseURL != "" {
		log.Printf("seeding via API: base=%s days=%d interval=%s", cfg.baseURL, cfg.days, interval)
		total, err = seedViaAPI(ctx, cfg, generator, start, end, interval)
	} else {
		log.Printf("seeding via database: days=%d interval=%s", cfg.days, interval)
		total, err = seedDirect(ctx, cfg.dsn, generator, start, end, interval, cfg.batchSize)
	}
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Printf("perf seed completed: %d readings over %d days", total, cfg.days)
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "dsn", envOrDefault("DATABASE_URL", "file:data/telemetry.db"), "database DSN (postgres:// or sqlite file path)")
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", ""), "seed through the batch ingest API instead of the database")
	flag.StringVar(&cfg.token, "token", envOrDefault("AUTH_TOKEN", ""), "bearer token for the ingest API")
	flag.StringVar(&cfg.startDate, "start-date", envOrDefault("START_DATE", ""), "start date (YYYY-MM-DD or RFC3339)")
	flag.IntVar(&cfg.days, "days", envOrInt("DAYS", 7), "number of days to seed")
	flag.IntVar(&cfg.intervalSeconds, "interval-seconds", envOrInt("INTERVAL_SECONDS", 60), "seconds between readings")
	flag.Float64Var(&cfg.minPowerKW, "min-kw", envOrFloat("MIN_POWER_LOAD_KW", 50), "minimum simulated load in kW")
	flag.Float64Var(&cfg.maxPowerKW, "max-kw", envOrFloat("MAX_POWER_LOAD_KW", 300), "maximum simulated load in kW")
	flag.Float64Var(&cfg.fuelFactor, "fuel-factor", envOrFloat("FUEL_EFFICIENCY_FACTOR", 0.3), "liters of diesel per kWh")
	flag.IntVar(&cfg.batchSize, "batch-size", envOrInt("BATCH_SIZE", 500), "readings per insert batch")
	flag.Parse()
	return cfg
}

func parseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour), nil
	}
	if strings.Contains(value, "T") {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func seedDirect(ctx context.Context, dsn string, generator *simulator.Generator, start, end time.Time, interval time.Duration, batchSize int) (int, error) {
	db, repo, err := openRepository(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	total := 0
	batch := make([]telemetry.Reading, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		count, err := repo.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		total += count
		batch = batch[:0]
		return nil
	}

	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		batch = append(batch, generator.ReadingAt(ts))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func openRepository(ctx context.Context, dsn string) (*sql.DB, telemetry.ReadingRepository, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		repo := telemetrypostgres.NewReadingRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	}
	db, err := telemetrysqlite.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	repo := telemetrysqlite.NewReadingRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}

type readingPayload struct {
	Timestamp   string  `json:"timestamp"`
	PowerLoadKW float64 `json:"power_load_kw"`
	FuelRateLPH float64 `json:"fuel_consumption_lph"`
	Status      string  `json:"status"`
}

type batchPayload struct {
	Readings []readingPayload `json:"readings"`
}

func seedViaAPI(ctx context.Context, cfg config, generator *simulator.Generator, start, end time.Time, interval time.Duration) (int, error) {
	endpoint := strings.TrimRight(cfg.baseURL, "/") + "/api/v1/telemetry/batch"
	client := &http.Client{Timeout: 60 * time.Second}

	total := 0
	batch := make([]readingPayload, 0, cfg.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := postBatch(ctx, client, endpoint, cfg.token, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		reading := generator.ReadingAt(ts)
		batch = append(batch, readingPayload{
			Timestamp:   reading.Timestamp.Format(time.RFC3339),
			PowerLoadKW: reading.PowerLoadKW,
			FuelRateLPH: reading.FuelRateLPH,
			Status:      reading.Status,
		})
		if len(batch) == cfg.batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func postBatch(ctx context.Context, client *http.Client, endpoint, token string, batch []readingPayload) error {
	body, err := json.Marshal(batchPayload{Readings: batch})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("batch ingest returned %s", resp.Status)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envOrFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}
