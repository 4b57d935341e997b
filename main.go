package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apihttp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/api/http"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/auth"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/eventing"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/adapters/advisor"
	optimizationsource "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/adapters/telemetry"
	optimizationapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
	optimizationpostgres "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/infrastructure/postgres"
	optimizationsqlite "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/infrastructure/sqlite"
	insightshttp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/interfaces/http"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/simulator"
	simulatorhttp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/simulator/interfaces/http"
	telemetryapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application"
	telemetryevents "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application/events"
	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
	telemetrypostgres "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/postgres"
	telemetrysqlite "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/infrastructure/sqlite"
	telemetryhttp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/interfaces/http"
	telemetrymqtt "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/interfaces/mqtt"
	telemetryws "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/interfaces/ws"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, dialect, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	logger.Printf("storage driver: %s", dialect)

	metrics.Init(db, logger)

	ctx := context.Background()

	var (
		readingRepo  telemetry.ReadingRepository
		readingQuery telemetry.ReadingQuery
		runRepo      optimizationapp.RunRepository
	)
	switch dialect {
	case dialectPostgres:
		repo := telemetrypostgres.NewReadingRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("telemetry schema error: %v", err)
		}
		runs := optimizationpostgres.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			logger.Fatalf("optimization schema error: %v", err)
		}
		readingRepo = repo
		readingQuery = telemetrypostgres.NewReadingQuery(db)
		runRepo = runs
	default:
		repo := telemetrysqlite.NewReadingRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("telemetry schema error: %v", err)
		}
		runs := optimizationsqlite.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			logger.Fatalf("optimization schema error: %v", err)
		}
		readingRepo = repo
		readingQuery = telemetrysqlite.NewReadingQuery(db)
		runRepo = runs
	}

	bus := eventing.NewInMemoryBus()

	recorder, err := telemetryapp.NewRecorder(readingRepo, bus, logger)
	if err != nil {
		logger.Fatalf("recorder error: %v", err)
	}

	hub := telemetryws.NewHub(logger)
	bus.Subscribe(eventing.EventTypeOf[telemetryevents.ReadingRecorded](), hub.HandleReadingRecorded)

	source, err := optimizationsource.NewQueryAdapter(readingQuery)
	if err != nil {
		logger.Fatalf("reading source error: %v", err)
	}

	var adv optimizationapp.Advisor
	if cfg.OpenAIKey != "" {
		client, err := advisor.NewClient(advisor.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			logger.Fatalf("advisor client error: %v", err)
		}
		adv = client
		logger.Printf("advisor enabled, model %s", cfg.OpenAIModel)
	} else {
		logger.Printf("OPENAI_API_KEY not set, explanations fall back to local summaries")
	}

	service, err := optimizationapp.NewService(source, adv, runRepo, optimizationapp.SystemClock{}, optimizationapp.Config{
		FuelPricePerLiter: cfg.DieselPricePerLiter,
		AnalysisHours:     cfg.AnalysisHours,
		MinShutdownHours:  cfg.MinShutdownHours,
		MaxShutdownHours:  cfg.MaxShutdownHours,
		ForecastHours:     cfg.ForecastHours,
	}, logger)
	if err != nil {
		logger.Fatalf("optimization service error: %v", err)
	}

	if cfg.OptimizeSchedule != "" {
		scheduler, err := optimizationapp.NewScheduler(service, cfg.OptimizeSchedule, logger)
		if err != nil {
			logger.Fatalf("scheduler error: %v", err)
		}
		scheduler.Start()
	}

	simCfg, err := simulator.LoadConfig()
	if err != nil {
		logger.Fatalf("simulator config error: %v", err)
	}
	generator := simulator.NewGenerator(simCfg)

	seeder, err := simulator.NewSeeder(generator, readingRepo, readingQuery, logger)
	if err != nil {
		logger.Fatalf("seeder error: %v", err)
	}
	if _, err := seeder.Seed(ctx, simCfg.SeedHours); err != nil {
		logger.Printf("seed error: %v", err)
	}

	runner, err := simulator.NewRunner(generator, recorder, logger)
	if err != nil {
		logger.Fatalf("simulator runner error: %v", err)
	}
	if cfg.SimulatorAutoStart {
		if err := runner.Start(); err != nil {
			logger.Fatalf("simulator start error: %v", err)
		}
	}

	if cfg.MQTTBroker != "" {
		if _, err := telemetrymqtt.NewConsumer(telemetrymqtt.Config{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, recorder, logger); err != nil {
			logger.Fatalf("mqtt consumer error: %v", err)
		}
	}

	ingestHandler, err := telemetryhttp.NewIngestHandler(recorder, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	batchHandler, err := telemetryhttp.NewBatchHandler(recorder, logger)
	if err != nil {
		logger.Fatalf("batch handler error: %v", err)
	}
	historyHandler, err := telemetryhttp.NewHistoryHandler(readingQuery, logger)
	if err != nil {
		logger.Fatalf("history handler error: %v", err)
	}
	latestHandler, err := telemetryhttp.NewLatestHandler(readingQuery, logger)
	if err != nil {
		logger.Fatalf("latest handler error: %v", err)
	}
	optimizeHandler, err := insightshttp.NewOptimizeHandler(service, logger)
	if err != nil {
		logger.Fatalf("optimize handler error: %v", err)
	}
	roiHandler, err := insightshttp.NewROIHandler(service, logger)
	if err != nil {
		logger.Fatalf("roi handler error: %v", err)
	}
	forecastHandler, err := insightshttp.NewForecastHandler(service, logger)
	if err != nil {
		logger.Fatalf("forecast handler error: %v", err)
	}
	xlsxExportHandler, err := insightshttp.NewReportExportHandler(service, insightshttp.ReportFormatXLSX, logger)
	if err != nil {
		logger.Fatalf("xlsx export handler error: %v", err)
	}
	pdfExportHandler, err := insightshttp.NewReportExportHandler(service, insightshttp.ReportFormatPDF, logger)
	if err != nil {
		logger.Fatalf("pdf export handler error: %v", err)
	}
	statsHandler, err := apihttp.NewStatsHandler(readingQuery, runRepo, logger)
	if err != nil {
		logger.Fatalf("stats handler error: %v", err)
	}
	simStartHandler, err := simulatorhttp.NewStartHandler(runner, logger)
	if err != nil {
		logger.Fatalf("simulator start handler error: %v", err)
	}
	simStopHandler, err := simulatorhttp.NewStopHandler(runner, logger)
	if err != nil {
		logger.Fatalf("simulator stop handler error: %v", err)
	}
	simStatusHandler, err := simulatorhttp.NewStatusHandler(runner)
	if err != nil {
		logger.Fatalf("simulator status handler error: %v", err)
	}
	wsHandler, err := telemetryws.NewHandler(hub, logger)
	if err != nil {
		logger.Fatalf("ws handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/telemetry", ingestHandler)
	mux.Handle("/api/v1/telemetry/batch", batchHandler)
	mux.Handle("/api/v1/telemetry/history", historyHandler)
	mux.Handle("/api/v1/telemetry/latest", latestHandler)
	mux.Handle("/api/v1/insights/optimize", optimizeHandler)
	mux.Handle("/api/v1/insights/roi", roiHandler)
	mux.Handle("/api/v1/insights/forecast", forecastHandler)
	mux.Handle("/api/v1/exports/report.xlsx", xlsxExportHandler)
	mux.Handle("/api/v1/exports/report.pdf", pdfExportHandler)
	mux.Handle("/api/v1/stats", statsHandler)
	mux.Handle("/api/v1/simulator/start", simStartHandler)
	mux.Handle("/api/v1/simulator/stop", simStopHandler)
	mux.Handle("/api/v1/simulator/status", simStatusHandler)
	mux.Handle("/ws/telemetry", wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := http.Handler(mux)
	if cfg.JWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ws/"})
		handler = auth.NewMiddleware([]byte(cfg.JWTSecret), policy).Wrap(handler)
	} else {
		logger.Printf("AUTH_JWT_SECRET not set, serving API without authentication")
	}

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(handler, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	DieselPricePerLiter float64
	AnalysisHours       int
	MinShutdownHours    int
	MaxShutdownHours    int
	ForecastHours       int
	OptimizeSchedule    string
	OpenAIBaseURL       string
	OpenAIKey           string
	OpenAIModel         string
	JWTSecret           string
	MQTTBroker          string
	MQTTTopic           string
	MQTTUsername        string
	MQTTPassword        string
	SimulatorAutoStart  bool
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", "file:data/telemetry.db"),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		DieselPricePerLiter: getenvFloatDefault("DIESEL_PRICE_PER_LITER", 1.50),
		AnalysisHours:       getenvIntDefault("ANALYSIS_HOURS", 24),
		MinShutdownHours:    getenvIntDefault("MIN_SHUTDOWN_HOURS", 2),
		MaxShutdownHours:    getenvIntDefault("MAX_SHUTDOWN_HOURS", 8),
		ForecastHours:       getenvIntDefault("FORECAST_HOURS", 24),
		OptimizeSchedule:    getenvDefault("OPTIMIZE_SCHEDULE", ""),
		OpenAIBaseURL:       getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIKey:           getenvDefault("OPENAI_API_KEY", ""),
		OpenAIModel:         getenvDefault("OPENAI_MODEL", "gpt-4"),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", ""),
		MQTTBroker:          getenvDefault("MQTT_BROKER", ""),
		MQTTTopic:           getenvDefault("MQTT_TOPIC", "smartgen/telemetry"),
		MQTTUsername:        getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:        getenvDefault("MQTT_PASSWORD", ""),
		SimulatorAutoStart:  getenvBoolDefault("SIMULATOR_AUTOSTART", true),
	}
	if cfg.DieselPricePerLiter <= 0 {
		log.Fatal("DIESEL_PRICE_PER_LITER must be positive")
	}
	return cfg
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

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// openDatabase picks the driver from the DSN scheme. postgres:// DSNs go
// through pgx; anything else is treated as a sqlite file path.
func openDatabase(dsn string) (*sql.DB, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		return db, dialectPostgres, err
	}
	if dir := filepath.Dir(sqliteFilePath(dsn)); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", err
		}
	}
	db, err := telemetrysqlite.Open(dsn)
	return db, dialectSQLite, err
}

// sqliteFilePath strips the file: scheme and query options from a sqlite DSN.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
