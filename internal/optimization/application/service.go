package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/domain"
)

// Recommendation provenance markers.
const (
	SourceAdvisor  = "advisor"
	SourceFallback = "fallback"
)

// forecastLookback is how much history feeds the standalone forecast.
// A full week captures every day-of-week average at least once.
const forecastLookback = 7 * 24 * time.Hour

// ReadingSource loads telemetry readings for analysis.
type ReadingSource interface {
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]optimization.Reading, error)
}

// Advice carries the numbers the advisor turns into prose.
type Advice struct {
	AvgPowerKW        float64
	LowestHours       []int
	WindowStart       time.Time
	WindowEnd         time.Time
	DurationHours     int
	FuelSavedLiters   float64
	DailySavingsUSD   float64
	MonthlySavingsUSD float64
}

// Advisor produces a natural-language recommendation.
type Advisor interface {
	Recommend(ctx context.Context, advice Advice) (string, error)
}

// Run is a stored summary of one optimization run.
type Run struct {
	ID                   int64
	GeneratedAt          time.Time
	AnalysisHours        int
	ReadingCount         int
	WindowStart          time.Time
	WindowEnd            time.Time
	DurationHours        int
	FuelSavedLiters      float64
	DailySavingsUSD      float64
	MonthlySavingsUSD    float64
	Recommendation       string
	RecommendationSource string
}

// ErrNoRuns is returned by RunRepository.Latest when no run has been
// stored yet.
var ErrNoRuns = errors.New("optimization: no runs stored")

// RunRepository stores optimization run summaries.
type RunRepository interface {
	Insert(ctx context.Context, run Run) (Run, error)
	Latest(ctx context.Context) (Run, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config carries service-level analysis defaults.
type Config struct {
	FuelPricePerLiter float64
	AnalysisHours     int
	MinShutdownHours  int
	MaxShutdownHours  int
	ForecastHours     int
}

func (c Config) withDefaults() Config {
	if c.FuelPricePerLiter == 0 {
		c.FuelPricePerLiter = optimization.DefaultFuelPricePerLiter
	}
	if c.AnalysisHours == 0 {
		c.AnalysisHours = 24
	}
	if c.MinShutdownHours == 0 {
		c.MinShutdownHours = optimization.DefaultMinShutdownHours
	}
	if c.MaxShutdownHours == 0 {
		c.MaxShutdownHours = optimization.DefaultMaxShutdownHours
	}
	if c.ForecastHours == 0 {
		c.ForecastHours = optimization.DefaultForecastHours
	}
	return c
}

// OptimizeParams bound a single optimization request. Zero fields fall
// back to the service defaults.
type OptimizeParams struct {
	AnalysisHours    int
	MinShutdownHours int
	MaxShutdownHours int
}

// Result is the complete outcome of one optimization run. The numeric
// analysis is always present; RecommendationSource records whether the
// prose came from the advisor or the local fallback.
type Result struct {
	Analysis             *optimization.Analysis
	Recommendation       string
	RecommendationSource string
}

// ROICard is the dashboard summary for the current recommendation.
type ROICard struct {
	Result              *Result
	AnalysisPeriodHours int
	LastUpdated         time.Time
}

// Service coordinates reading retrieval, core analysis, advisory prose
// and run persistence.
type Service struct {
	source     ReadingSource
	advisor    Advisor
	runs       RunRepository
	clock      Clock
	logger     *log.Logger
	cfg        Config
	optimizer  *optimization.Optimizer
	forecaster *optimization.Forecaster
}

// NewService constructs the optimization service. The advisor may be
// nil, in which case every recommendation uses the local fallback; the
// run repository may be nil to skip history persistence.
func NewService(
	source ReadingSource,
	advisor Advisor,
	runs RunRepository,
	clock Clock,
	cfg Config,
	logger *log.Logger,
) (*Service, error) {
	if source == nil {
		return nil, errors.New("optimization service: nil reading source")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}

	forecaster := optimization.NewForecaster()
	return &Service{
		source:     source,
		advisor:    advisor,
		runs:       runs,
		clock:      clock,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		optimizer:  optimization.NewOptimizer(optimization.WithForecaster(forecaster)),
		forecaster: forecaster,
	}, nil
}

// Optimize analyzes the recent reading history and returns the
// recommended shutdown window with savings and prose. The numeric
// result survives advisor failures; only the prose degrades.
func (s *Service) Optimize(ctx context.Context, params OptimizeParams) (*Result, error) {
	started := time.Now()

	if params.AnalysisHours == 0 {
		params.AnalysisHours = s.cfg.AnalysisHours
	}
	if params.MinShutdownHours == 0 {
		params.MinShutdownHours = s.cfg.MinShutdownHours
	}
	if params.MaxShutdownHours == 0 {
		params.MaxShutdownHours = s.cfg.MaxShutdownHours
	}
	if params.AnalysisHours < 1 || params.MinShutdownHours < 1 || params.MaxShutdownHours < 1 {
		return nil, optimization.ErrInvalidInput
	}

	end := s.clock.Now().UTC()
	start := end.Add(-time.Duration(params.AnalysisHours) * time.Hour)

	readings, err := s.source.ReadingsBetween(ctx, start, end)
	if err != nil {
		metrics.ObserveOptimization(metrics.ResultError, time.Since(started))
		return nil, fmt.Errorf("optimization service: load readings: %w", err)
	}
	if len(readings) == 0 {
		metrics.ObserveOptimization(metrics.OptimizeResultInsufficientData, time.Since(started))
		return nil, optimization.ErrInsufficientData
	}

	analysis, err := s.optimizer.Analyze(readings, optimization.Params{
		MinShutdownHours:  params.MinShutdownHours,
		MaxShutdownHours:  params.MaxShutdownHours,
		FuelPricePerLiter: s.cfg.FuelPricePerLiter,
		ForecastHours:     s.cfg.ForecastHours,
	}, end)
	switch {
	case errors.Is(err, optimization.ErrNoWindowFound):
		metrics.ObserveOptimization(metrics.OptimizeResultNoWindow, time.Since(started))
		return nil, err
	case errors.Is(err, optimization.ErrInsufficientData):
		metrics.ObserveOptimization(metrics.OptimizeResultInsufficientData, time.Since(started))
		return nil, err
	case err != nil:
		metrics.ObserveOptimization(metrics.ResultError, time.Since(started))
		return nil, err
	}

	recommendation, source := s.recommend(ctx, analysis)

	if s.runs != nil {
		run := Run{
			GeneratedAt:          analysis.GeneratedAt,
			AnalysisHours:        params.AnalysisHours,
			ReadingCount:         analysis.ReadingCount,
			WindowStart:          analysis.WindowStart,
			WindowEnd:            analysis.WindowEnd,
			DurationHours:        analysis.Window.DurationHours,
			FuelSavedLiters:      analysis.Savings.FuelSavedLiters,
			DailySavingsUSD:      analysis.Savings.DailySavingsUSD,
			MonthlySavingsUSD:    analysis.Savings.MonthlySavingsUSD,
			Recommendation:       recommendation,
			RecommendationSource: source,
		}
		if _, err := s.runs.Insert(ctx, run); err != nil {
			s.logger.Printf("optimization service: store run: %v", err)
		}
	}

	metrics.ObserveOptimization(metrics.ResultSuccess, time.Since(started))
	return &Result{
		Analysis:             analysis,
		Recommendation:       recommendation,
		RecommendationSource: source,
	}, nil
}

// ROICard runs an optimization and wraps it for dashboard display.
func (s *Service) ROICard(ctx context.Context, hours int) (*ROICard, error) {
	if hours < 1 {
		hours = s.cfg.AnalysisHours
	}
	result, err := s.Optimize(ctx, OptimizeParams{AnalysisHours: hours})
	if err != nil {
		return nil, err
	}
	return &ROICard{
		Result:              result,
		AnalysisPeriodHours: hours,
		LastUpdated:         s.clock.Now().UTC(),
	}, nil
}

// Forecast projects hourly load over the horizon without running the
// full window analysis.
func (s *Service) Forecast(ctx context.Context, horizonHours int) (*optimization.LoadForecast, error) {
	if horizonHours < 1 {
		horizonHours = s.cfg.ForecastHours
	}

	end := s.clock.Now().UTC()
	readings, err := s.source.ReadingsBetween(ctx, end.Add(-forecastLookback), end)
	if err != nil {
		return nil, fmt.Errorf("optimization service: load readings: %w", err)
	}

	forecast, err := s.forecaster.Forecast(readings, horizonHours)
	if err != nil {
		return nil, err
	}
	return &forecast, nil
}

func (s *Service) recommend(ctx context.Context, analysis *optimization.Analysis) (string, string) {
	advice := Advice{
		AvgPowerKW:        analysis.Pattern.AvgPowerKW,
		LowestHours:       analysis.Pattern.LowestHours,
		WindowStart:       analysis.WindowStart,
		WindowEnd:         analysis.WindowEnd,
		DurationHours:     analysis.Window.DurationHours,
		FuelSavedLiters:   analysis.Savings.FuelSavedLiters,
		DailySavingsUSD:   analysis.Savings.DailySavingsUSD,
		MonthlySavingsUSD: analysis.Savings.MonthlySavingsUSD,
	}

	if s.advisor != nil {
		text, err := s.advisor.Recommend(ctx, advice)
		if err != nil {
			metrics.IncAdvisorRequest(metrics.ResultError)
			s.logger.Printf("optimization service: advisor error: %v", err)
		} else if text != "" {
			metrics.IncAdvisorRequest(metrics.ResultSuccess)
			return text, SourceAdvisor
		}
	}
	return FallbackRecommendation(advice), SourceFallback
}

// FallbackRecommendation composes a deterministic operator summary for
// runs where no advisor prose is available.
func FallbackRecommendation(advice Advice) string {
	return fmt.Sprintf(
		"Shut down the generator between %s and %s UTC (%d hours). "+
			"Average load over the analysis period was %.1f kW. "+
			"Pausing in this window saves an estimated %.1f liters of diesel per day, "+
			"worth $%.2f per day and about $%.2f per month.",
		advice.WindowStart.UTC().Format("15:04"),
		advice.WindowEnd.UTC().Format("15:04"),
		advice.DurationHours,
		advice.AvgPowerKW,
		advice.FuelSavedLiters,
		advice.DailySavingsUSD,
		advice.MonthlySavingsUSD,
	)
}
