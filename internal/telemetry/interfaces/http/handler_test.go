package telemetryhttp

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

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

type stubRepo struct {
	nextID   int64
	inserted []telemetry.Reading
}

func (s *stubRepo) Insert(_ context.Context, reading telemetry.Reading) (telemetry.Reading, error) {
	s.nextID++
	reading.ID = s.nextID
	s.inserted = append(s.inserted, reading)
	return reading, nil
}

func (s *stubRepo) InsertBatch(_ context.Context, readings []telemetry.Reading) (int, error) {
	s.inserted = append(s.inserted, readings...)
	return len(readings), nil
}

type stubQuery struct {
	readings  []telemetry.Reading
	err       error
	lastStart time.Time
	lastEnd   time.Time
}

func (s *stubQuery) Range(_ context.Context, start, end time.Time) ([]telemetry.Reading, error) {
	s.lastStart, s.lastEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

func (s *stubQuery) Latest(_ context.Context) (telemetry.Reading, error) {
	if s.err != nil {
		return telemetry.Reading{}, s.err
	}
	if len(s.readings) == 0 {
		return telemetry.Reading{}, telemetry.ErrNoReadings
	}
	return s.readings[len(s.readings)-1], nil
}

func (s *stubQuery) Stats(_ context.Context) (telemetry.Stats, error) {
	return telemetry.Stats{Count: int64(len(s.readings))}, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestRecorder(t *testing.T, repo telemetry.ReadingRepository) *application.Recorder {
	t.Helper()
	recorder, err := application.NewRecorder(repo, nil, testLogger())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return recorder
}

func TestIngestStoresReading(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewIngestHandler(newTestRecorder(t, repo), testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"timestamp":"2025-11-14T09:30:00+03:00","power_load_kw":120.5,"fuel_consumption_lph":36.15}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got readingDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("expected id 1, got %d", got.ID)
	}
	want := time.Date(2025, 11, 14, 6, 30, 0, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, got.Timestamp)
	}
	if got.Status != telemetry.StatusOn {
		t.Fatalf("expected default status ON, got %q", got.Status)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 stored reading, got %d", len(repo.inserted))
	}
}

func TestIngestRejectsInvalidReading(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewIngestHandler(newTestRecorder(t, repo), testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"timestamp":"2025-11-14T09:30:00Z","power_load_kw":-5,"fuel_consumption_lph":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no stored readings, got %d", len(repo.inserted))
	}
}

func TestIngestRejectsWrongMethod(t *testing.T) {
	handler, err := NewIngestHandler(newTestRecorder(t, &stubRepo{}), testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestBatchStoresAllReadings(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewBatchHandler(newTestRecorder(t, repo), testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"readings":[
		{"timestamp":"2025-11-14T06:00:00Z","power_load_kw":100,"fuel_consumption_lph":30},
		{"timestamp":"2025-11-14T07:00:00Z","power_load_kw":150,"fuel_consumption_lph":45},
		{"timestamp":"2025-11-14T08:00:00Z","power_load_kw":200,"fuel_consumption_lph":60}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Count != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Message != "Successfully stored 3 telemetry readings" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestBatchRejectsInvalidReading(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewBatchHandler(newTestRecorder(t, repo), testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"readings":[
		{"timestamp":"2025-11-14T06:00:00Z","power_load_kw":100,"fuel_consumption_lph":30},
		{"timestamp":"2025-11-14T07:00:00Z","power_load_kw":-1,"fuel_consumption_lph":45}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected batch rejected before storage, got %d stored", len(repo.inserted))
	}
}

func TestHistoryDefaultsToLastDay(t *testing.T) {
	query := &stubQuery{}
	handler, err := NewHistoryHandler(query, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	fixed := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return fixed }

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !query.lastEnd.Equal(fixed) {
		t.Fatalf("expected end %v, got %v", fixed, query.lastEnd)
	}
	if !query.lastStart.Equal(fixed.Add(-24 * time.Hour)) {
		t.Fatalf("expected start %v, got %v", fixed.Add(-24*time.Hour), query.lastStart)
	}

	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 || len(resp.Data) != 0 {
		t.Fatalf("expected empty history, got %+v", resp)
	}
}

func TestHistoryReturnsReadings(t *testing.T) {
	base := time.Date(2025, 11, 14, 6, 0, 0, 0, time.UTC)
	query := &stubQuery{readings: []telemetry.Reading{
		{ID: 1, Timestamp: base, PowerLoadKW: 100, FuelRateLPH: 30, Status: telemetry.StatusOn},
		{ID: 2, Timestamp: base.Add(time.Hour), PowerLoadKW: 150, FuelRateLPH: 45, Status: telemetry.StatusOn},
	}}
	handler, err := NewHistoryHandler(query, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	url := "/api/v1/telemetry/history?start=2025-11-14T06:00:00Z&end=2025-11-14T08:00:00Z"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("expected 2 readings, got %+v", resp)
	}
	if resp.Data[0].FuelRateLPH != 30 {
		t.Fatalf("expected fuel 30, got %v", resp.Data[0].FuelRateLPH)
	}
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	handler, err := NewHistoryHandler(&stubQuery{}, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	url := "/api/v1/telemetry/history?start=2025-11-14T10:00:00Z&end=2025-11-14T06:00:00Z"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "start time must be before end time" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestHistoryRejectsMalformedTimestamp(t *testing.T) {
	handler, err := NewHistoryHandler(&stubQuery{}, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/history?start=yesterday", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "start must be RFC3339" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestLatestReturnsMostRecent(t *testing.T) {
	base := time.Date(2025, 11, 14, 6, 0, 0, 0, time.UTC)
	query := &stubQuery{readings: []telemetry.Reading{
		{ID: 5, Timestamp: base, PowerLoadKW: 180, FuelRateLPH: 54, Status: telemetry.StatusOn},
	}}
	handler, err := NewLatestHandler(query, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/latest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got readingDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 5 || got.PowerLoadKW != 180 {
		t.Fatalf("unexpected reading: %+v", got)
	}
}

func TestLatestEmptyReturns404(t *testing.T) {
	handler, err := NewLatestHandler(&stubQuery{}, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/latest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "no telemetry data available" {
		t.Fatalf("unexpected body: %q", got)
	}
}
