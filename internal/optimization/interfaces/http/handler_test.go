package insightshttp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/domain"
)

type stubSource struct {
	readings []optimization.Reading
	err      error
}

func (s *stubSource) ReadingsBetween(_ context.Context, _, _ time.Time) ([]optimization.Reading, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

type stubAdvisor struct {
	text string
}

func (s *stubAdvisor) Recommend(_ context.Context, _ application.Advice) (string, error) {
	return s.text, nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var testNow = time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

// dayProfile has a quiet band at hours 2-5 and a second band at 14-15.
func dayProfile() []optimization.Reading {
	day := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	readings := make([]optimization.Reading, 0, 24)
	for hour := 0; hour < 24; hour++ {
		load := 150.0
		switch {
		case hour >= 2 && hour <= 5:
			load = 50
		case hour == 14 || hour == 15:
			load = 60
		}
		readings = append(readings, optimization.Reading{
			Timestamp:   day.Add(time.Duration(hour) * time.Hour),
			PowerLoadKW: load,
			FuelRateLPH: load * 0.3,
		})
	}
	return readings
}

// alternatingProfile spreads the low hours so no contiguous window exists.
func alternatingProfile() []optimization.Reading {
	day := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	readings := make([]optimization.Reading, 0, 24)
	for hour := 0; hour < 24; hour++ {
		load := 150.0
		if hour%4 == 0 {
			load = 50
		}
		readings = append(readings, optimization.Reading{
			Timestamp:   day.Add(time.Duration(hour) * time.Hour),
			PowerLoadKW: load,
			FuelRateLPH: load * 0.3,
		})
	}
	return readings
}

func flatWeek() []optimization.Reading {
	start := testNow.Add(-7 * 24 * time.Hour)
	readings := make([]optimization.Reading, 0, 7*24)
	for i := 0; i < 7*24; i++ {
		readings = append(readings, optimization.Reading{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			PowerLoadKW: 100,
			FuelRateLPH: 30,
		})
	}
	return readings
}

func newTestService(t *testing.T, source application.ReadingSource, advisor application.Advisor) *application.Service {
	t.Helper()
	service, err := application.NewService(source, advisor, nil, fixedClock{at: testNow}, application.Config{}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestOptimizeReturnsResult(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, &stubAdvisor{text: "Pause overnight."})
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := strings.NewReader(`{"analysis_hours":24,"min_shutdown_hours":2,"max_shutdown_hours":8}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/optimize", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp optimizationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	wantStart := time.Date(2025, 11, 14, 2, 0, 0, 0, time.UTC)
	if !resp.ShutdownWindow.Start.Equal(wantStart) || resp.ShutdownWindow.DurationHours != 4 {
		t.Fatalf("unexpected window: %+v", resp.ShutdownWindow)
	}
	if resp.Savings.FuelSavedLiters != 151 || resp.Savings.DailySavingsUSD != 226.5 || resp.Savings.MonthlySavingsUSD != 6795 {
		t.Fatalf("unexpected savings: %+v", resp.Savings)
	}
	if resp.Recommendation != "Pause overnight." || resp.RecommendationSource != application.SourceAdvisor {
		t.Fatalf("unexpected recommendation: %+v", resp)
	}
}

func TestOptimizeEmptyBodyUsesDefaults(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/optimize", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp optimizationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RecommendationSource != application.SourceFallback {
		t.Fatalf("expected fallback without advisor, got %q", resp.RecommendationSource)
	}
}

func TestOptimizeNoData(t *testing.T) {
	service := newTestService(t, &stubSource{}, nil)
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/optimize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "no telemetry data available for optimization" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestOptimizeNoWindow(t *testing.T) {
	service := newTestService(t, &stubSource{readings: alternatingProfile()}, nil)
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/optimize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "could not find suitable shutdown window" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestOptimizeInvalidParams(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/optimize", strings.NewReader(`{"analysis_hours":-1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "invalid optimization parameters" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestOptimizeWrongMethod(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewOptimizeHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/optimize", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestROIReturnsCard(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewROIHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/roi?hours=48", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AnalysisPeriodHours int        `json:"analysis_period_hours"`
		LastUpdated         time.Time  `json:"last_updated"`
		Savings             savingsDTO `json:"savings"`
		Recommendation      string     `json:"recommendation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AnalysisPeriodHours != 48 {
		t.Fatalf("expected analysis period 48, got %d", resp.AnalysisPeriodHours)
	}
	if !resp.LastUpdated.Equal(testNow) {
		t.Fatalf("expected last updated %v, got %v", testNow, resp.LastUpdated)
	}
	if resp.Savings.DailySavingsUSD != 226.5 || resp.Recommendation == "" {
		t.Fatalf("unexpected card: %+v", resp)
	}
}

func TestROIInvalidHours(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewROIHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/roi?hours=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "hours must be an integer" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestForecastReturnsPoints(t *testing.T) {
	service := newTestService(t, &stubSource{readings: flatWeek()}, nil)
	handler, err := NewForecastHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/forecast?hours=24", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 24 || len(resp.Points) != 24 {
		t.Fatalf("expected 24 points, got count %d len %d", resp.Count, len(resp.Points))
	}
	for _, point := range resp.Points {
		if point.PredictedLoadKW < 95 || point.PredictedLoadKW > 105 {
			t.Fatalf("prediction outside jitter range: %+v", point)
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewForecastHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/forecast", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "not enough telemetry history for a forecast" {
		t.Fatalf("unexpected body: %q", got)
	}
}
