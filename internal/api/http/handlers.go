// Package apihttp serves the aggregate dashboard endpoints that sit
// above the telemetry and optimization contexts.
package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	optimizationapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

const timeLayout = time.RFC3339

type statsResponse struct {
	ReadingCount   int64       `json:"reading_count"`
	FirstReading   string      `json:"first_reading,omitempty"`
	LastReading    string      `json:"last_reading,omitempty"`
	AvgPowerKW     float64     `json:"avg_power_kw"`
	AvgFuelRateLPH float64     `json:"avg_fuel_rate_lph"`
	LastRun        *lastRunDTO `json:"last_run,omitempty"`
}

type lastRunDTO struct {
	GeneratedAt       string  `json:"generated_at"`
	WindowStart       string  `json:"window_start"`
	WindowEnd         string  `json:"window_end"`
	DurationHours     int     `json:"duration_hours"`
	DailySavingsUSD   float64 `json:"daily_savings_usd"`
	MonthlySavingsUSD float64 `json:"monthly_savings_usd"`
	Source            string  `json:"recommendation_source"`
}

// StatsHandler serves aggregate reading statistics plus the most
// recent optimization run.
type StatsHandler struct {
	query  telemetry.ReadingQuery
	runs   optimizationapp.RunRepository
	logger *log.Logger
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(query telemetry.ReadingQuery, runs optimizationapp.RunRepository, logger *log.Logger) (*StatsHandler, error) {
	if query == nil {
		return nil, errors.New("stats handler: nil query")
	}
	if runs == nil {
		return nil, errors.New("stats handler: nil run repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StatsHandler{query: query, runs: runs, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.query.Stats(r.Context())
	if err != nil {
		h.logger.Printf("stats handler: query stats: %v", err)
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		ReadingCount:   stats.Count,
		FirstReading:   formatTime(stats.First),
		LastReading:    formatTime(stats.Last),
		AvgPowerKW:     stats.AvgPowerKW,
		AvgFuelRateLPH: stats.AvgFuelLPH,
	}

	run, err := h.runs.Latest(r.Context())
	switch {
	case errors.Is(err, optimizationapp.ErrNoRuns):
		// No run yet; the stats card renders without it.
	case err != nil:
		h.logger.Printf("stats handler: latest run: %v", err)
	default:
		resp.LastRun = &lastRunDTO{
			GeneratedAt:       formatTime(run.GeneratedAt),
			WindowStart:       formatTime(run.WindowStart),
			WindowEnd:         formatTime(run.WindowEnd),
			DurationHours:     run.DurationHours,
			DailySavingsUSD:   run.DailySavingsUSD,
			MonthlySavingsUSD: run.MonthlySavingsUSD,
			Source:            run.RecommendationSource,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}
