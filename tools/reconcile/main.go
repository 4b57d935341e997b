// Command reconcile recomputes stored optimization runs from the raw
// telemetry history and reports drift against the persisted figures.
// Use it after repairing telemetry data or changing analysis parameters
// to see which stored recommendations no longer hold.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	optimization "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/domain"
	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
	telemetrypostgres "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/postgres"
	telemetrysqlite "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/sqlite"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const timeLayout = time.RFC3339

const sqliteTimeLayout = "2006-01-02 15:04:05"

type config struct {
	dbURL         string
	limit         int
	toleranceUSD  float64
	pricePerLiter float64
	minHours      int
	maxHours      int
	outDir        string
}

type storedRun struct {
	ID                int64
	GeneratedAt       time.Time
	AnalysisHours     int
	ReadingCount      int
	WindowStart       time.Time
	WindowEnd         time.Time
	DurationHours     int
	FuelSavedLiters   float64
	DailySavingsUSD   float64
	MonthlySavingsUSD float64
}

type reconcileRow struct {
	Run               storedRun
	ReadingCountNow   int
	RecomputedStart   time.Time
	RecomputedEnd     time.Time
	RecomputedHours   int
	RecomputedDaily   float64
	RecomputedMonthly float64
	DeltaDaily        float64
	Status            string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "create out dir:", err)
		os.Exit(2)
	}

	db, query, err := openStore(cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	ctx := context.Background()

	runs, err := loadRuns(ctx, db, cfg.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load runs:", err)
		os.Exit(2)
	}
	if len(runs) == 0 {
		fmt.Println("no optimization runs stored, nothing to reconcile")
		return
	}

	params := optimization.Params{
		MinShutdownHours:  cfg.minHours,
		MaxShutdownHours:  cfg.maxHours,
		FuelPricePerLiter: cfg.pricePerLiter,
	}
	optimizer := optimization.NewOptimizer()

	rows := make([]reconcileRow, 0, len(runs))
	var drifted, failed int
	for _, run := range runs {
		row := reconcileRun(ctx, query, optimizer, params, run, cfg.toleranceUSD)
		switch row.Status {
		case "ok":
		case "drift":
			drifted++
		default:
			failed++
		}
		rows = append(rows, row)
	}

	outPath := filepath.Join(cfg.outDir, "reconcile_runs.csv")
	if err := writeReport(outPath, rows); err != nil {
		fmt.Fprintln(os.Stderr, "write report:", err)
		os.Exit(2)
	}

	fmt.Printf("reconciled %d runs: %d ok, %d drifted, %d unrecomputable\n",
		len(rows), len(rows)-drifted-failed, drifted, failed)
	fmt.Printf("report written to %s\n", outPath)
	if drifted > 0 {
		os.Exit(1)
	}
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", "file:data/telemetry.db"), "database DSN (postgres:// or sqlite file path)")
	flag.IntVar(&cfg.limit, "limit", 0, "reconcile only the most recent N runs (0 = all)")
	flag.Float64Var(&cfg.toleranceUSD, "tolerance-usd", 0.01, "allowed absolute drift in daily savings")
	flag.Float64Var(&cfg.pricePerLiter, "price-per-liter", getenvFloatDefault("DIESEL_PRICE_PER_LITER", 1.50), "diesel price used for recomputation")
	flag.IntVar(&cfg.minHours, "min-hours", getenvIntDefault("MIN_SHUTDOWN_HOURS", 2), "minimum shutdown window hours")
	flag.IntVar(&cfg.maxHours, "max-hours", getenvIntDefault("MAX_SHUTDOWN_HOURS", 8), "maximum shutdown window hours")
	flag.StringVar(&cfg.outDir, "out", "./out", "output directory")
	flag.Parse()

	if cfg.dbURL == "" {
		return cfg, errors.New("missing --db or DATABASE_URL")
	}
	if cfg.limit < 0 {
		return cfg, errors.New("--limit must not be negative")
	}
	if cfg.toleranceUSD < 0 {
		return cfg, errors.New("--tolerance-usd must not be negative")
	}
	return cfg, nil
}

func openStore(dsn string) (*sql.DB, telemetry.ReadingQuery, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, telemetrypostgres.NewReadingQuery(db), nil
	}
	db, err := telemetrysqlite.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, telemetrysqlite.NewReadingQuery(db), nil
}

// loadRuns reads stored runs oldest first. The query is parameterless so
// the same SQL serves both drivers; timestamps are coerced per driver.
func loadRuns(ctx context.Context, db *sql.DB, limit int) ([]storedRun, error) {
	query := `
SELECT id, generated_at, analysis_hours, reading_count, window_start, window_end,
	duration_hours, fuel_saved_liters, daily_savings_usd, monthly_savings_usd
FROM optimization_runs
ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []storedRun
	for rows.Next() {
		var (
			run         storedRun
			generatedAt any
			windowStart any
			windowEnd   any
		)
		if err := rows.Scan(
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
		); err != nil {
			return nil, err
		}
		if run.GeneratedAt, err = coerceTime(generatedAt); err != nil {
			return nil, err
		}
		if run.WindowStart, err = coerceTime(windowStart); err != nil {
			return nil, err
		}
		if run.WindowEnd, err = coerceTime(windowEnd); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first reads better in the report.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

func coerceTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseStoredTime(v)
	case []byte:
		return parseStoredTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func parseStoredTime(value string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

func reconcileRun(ctx context.Context, query telemetry.ReadingQuery, optimizer *optimization.Optimizer, params optimization.Params, run storedRun, tolerance float64) reconcileRow {
	row := reconcileRow{Run: run}

	from := run.GeneratedAt.Add(-time.Duration(run.AnalysisHours) * time.Hour)
	stored, err := query.Range(ctx, from, run.GeneratedAt)
	if err != nil {
		row.Status = "query_error"
		return row
	}
	row.ReadingCountNow = len(stored)

	readings := make([]optimization.Reading, 0, len(stored))
	for _, reading := range stored {
		readings = append(readings, optimization.Reading{
			Timestamp:   reading.Timestamp,
			PowerLoadKW: reading.PowerLoadKW,
			FuelRateLPH: reading.FuelRateLPH,
		})
	}

	analysis, err := optimizer.Analyze(readings, params, run.GeneratedAt)
	switch {
	case errors.Is(err, optimization.ErrInsufficientData):
		row.Status = "insufficient_data"
		return row
	case errors.Is(err, optimization.ErrNoWindowFound):
		row.Status = "no_window"
		return row
	case err != nil:
		row.Status = "analysis_error"
		return row
	}

	row.RecomputedStart = analysis.WindowStart
	row.RecomputedEnd = analysis.WindowEnd
	row.RecomputedHours = analysis.Window.DurationHours
	row.RecomputedDaily = analysis.Savings.DailySavingsUSD
	row.RecomputedMonthly = analysis.Savings.MonthlySavingsUSD
	row.DeltaDaily = analysis.Savings.DailySavingsUSD - run.DailySavingsUSD

	if abs(row.DeltaDaily) > tolerance ||
		analysis.Window.DurationHours != run.DurationHours ||
		analysis.Window.StartHour != run.WindowStart.UTC().Hour() {
		row.Status = "drift"
	} else {
		row.Status = "ok"
	}
	return row
}

func writeReport(path string, rows []reconcileRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"run_id", "generated_at", "analysis_hours", "reading_count_stored", "reading_count_now",
		"stored_window_start", "stored_duration_hours", "stored_daily_usd", "stored_monthly_usd",
		"recomputed_window_start", "recomputed_duration_hours", "recomputed_daily_usd", "recomputed_monthly_usd",
		"delta_daily_usd", "status",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.Run.ID, 10),
			formatTime(row.Run.GeneratedAt),
			strconv.Itoa(row.Run.AnalysisHours),
			strconv.Itoa(row.Run.ReadingCount),
			strconv.Itoa(row.ReadingCountNow),
			formatTime(row.Run.WindowStart),
			strconv.Itoa(row.Run.DurationHours),
			formatFloat(row.Run.DailySavingsUSD),
			formatFloat(row.Run.MonthlySavingsUSD),
			formatTime(row.RecomputedStart),
			strconv.Itoa(row.RecomputedHours),
			formatFloat(row.RecomputedDaily),
			formatFloat(row.RecomputedMonthly),
			formatFloat(row.DeltaDaily),
			row.Status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
