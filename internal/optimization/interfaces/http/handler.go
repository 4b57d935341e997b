// Package insightshttp serves optimization insights over HTTP.
package insightshttp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/domain"
)

// OptimizeHandler runs an on-demand optimization.
type OptimizeHandler struct {
	service *application.Service
	logger  *log.Logger
}

// NewOptimizeHandler constructs an optimize handler.
func NewOptimizeHandler(service *application.Service, logger *log.Logger) (*OptimizeHandler, error) {
	if service == nil {
		return nil, errors.New("insights optimize: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OptimizeHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/insights/optimize. An empty body runs
// with the configured defaults.
func (h *OptimizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Printf("insights optimize: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result, err := h.service.Optimize(r.Context(), application.OptimizeParams{
		AnalysisHours:    req.AnalysisHours,
		MinShutdownHours: req.MinShutdownHours,
		MaxShutdownHours: req.MaxShutdownHours,
	})
	if err != nil {
		writeOptimizeError(w, h.logger, "insights optimize", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toOptimizationResponse(result))
}

// ROIHandler serves the dashboard ROI card.
type ROIHandler struct {
	service *application.Service
	logger  *log.Logger
}

// NewROIHandler constructs a ROI card handler.
func NewROIHandler(service *application.Service, logger *log.Logger) (*ROIHandler, error) {
	if service == nil {
		return nil, errors.New("insights roi: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ROIHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/insights/roi.
func (h *ROIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	hours, err := parseHoursQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card, err := h.service.ROICard(r.Context(), hours)
	if err != nil {
		writeOptimizeError(w, h.logger, "insights roi", err)
		return
	}

	resp := roiResponse{
		optimizationResponse: toOptimizationResponse(card.Result),
		AnalysisPeriodHours:  card.AnalysisPeriodHours,
		LastUpdated:          card.LastUpdated,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ForecastHandler serves the hourly load projection.
type ForecastHandler struct {
	service *application.Service
	logger  *log.Logger
}

// NewForecastHandler constructs a forecast handler.
func NewForecastHandler(service *application.Service, logger *log.Logger) (*ForecastHandler, error) {
	if service == nil {
		return nil, errors.New("insights forecast: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ForecastHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/insights/forecast.
func (h *ForecastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	hours, err := parseHoursQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	forecast, err := h.service.Forecast(r.Context(), hours)
	if errors.Is(err, optimization.ErrInsufficientData) {
		http.Error(w, "not enough telemetry history for a forecast", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Printf("insights forecast: %v", err)
		http.Error(w, "forecast error", http.StatusInternalServerError)
		return
	}

	points := make([]forecastPointDTO, 0, len(forecast.Points))
	for _, point := range forecast.Points {
		points = append(points, forecastPointDTO{
			Timestamp:       point.Timestamp.UTC(),
			HourOfDay:       point.HourOfDay,
			PredictedLoadKW: point.PredictedLoadKW,
			Confidence:      point.Confidence,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(forecastResponse{
		GeneratedFrom: forecast.GeneratedFrom.UTC(),
		Count:         len(points),
		Points:        points,
	})
}

func writeOptimizeError(w http.ResponseWriter, logger *log.Logger, op string, err error) {
	switch {
	case errors.Is(err, optimization.ErrInvalidInput):
		http.Error(w, "invalid optimization parameters", http.StatusBadRequest)
	case errors.Is(err, optimization.ErrInsufficientData):
		http.Error(w, "no telemetry data available for optimization", http.StatusNotFound)
	case errors.Is(err, optimization.ErrNoWindowFound):
		http.Error(w, "could not find suitable shutdown window", http.StatusUnprocessableEntity)
	default:
		logger.Printf("%s: %v", op, err)
		http.Error(w, "optimization error", http.StatusInternalServerError)
	}
}

func parseHoursQuery(r *http.Request) (int, error) {
	value := r.URL.Query().Get("hours")
	if value == "" {
		return 0, nil
	}
	hours, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("hours must be an integer")
	}
	return hours, nil
}

type optimizeRequest struct {
	AnalysisHours    int `json:"analysis_hours"`
	MinShutdownHours int `json:"min_shutdown_hours"`
	MaxShutdownHours int `json:"max_shutdown_hours"`
}

type windowDTO struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours int       `json:"duration_hours"`
}

type savingsDTO struct {
	DailySavingsUSD   float64 `json:"daily_savings_usd"`
	MonthlySavingsUSD float64 `json:"monthly_savings_usd"`
	FuelSavedLiters   float64 `json:"fuel_saved_liters"`
}

type optimizationResponse struct {
	ShutdownWindow       windowDTO  `json:"shutdown_window"`
	Savings              savingsDTO `json:"savings"`
	Recommendation       string     `json:"recommendation"`
	RecommendationSource string     `json:"recommendation_source"`
}

type roiResponse struct {
	optimizationResponse
	AnalysisPeriodHours int       `json:"analysis_period_hours"`
	LastUpdated         time.Time `json:"last_updated"`
}

type forecastPointDTO struct {
	Timestamp       time.Time `json:"timestamp"`
	HourOfDay       int       `json:"hour_of_day"`
	PredictedLoadKW float64   `json:"predicted_load_kw"`
	Confidence      string    `json:"confidence"`
}

type forecastResponse struct {
	GeneratedFrom time.Time          `json:"generated_from"`
	Count         int                `json:"count"`
	Points        []forecastPointDTO `json:"points"`
}

func toOptimizationResponse(result *application.Result) optimizationResponse {
	analysis := result.Analysis
	return optimizationResponse{
		ShutdownWindow: windowDTO{
			Start:         analysis.WindowStart.UTC(),
			End:           analysis.WindowEnd.UTC(),
			DurationHours: analysis.Window.DurationHours,
		},
		Savings: savingsDTO{
			DailySavingsUSD:   analysis.Savings.DailySavingsUSD,
			MonthlySavingsUSD: analysis.Savings.MonthlySavingsUSD,
			FuelSavedLiters:   analysis.Savings.FuelSavedLiters,
		},
		Recommendation:       result.Recommendation,
		RecommendationSource: result.RecommendationSource,
	}
}
