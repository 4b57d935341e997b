package telemetryhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

const timeLayout = time.RFC3339

const historyDefaultSpan = 24 * time.Hour

// IngestHandler stores a single telemetry reading.
type IngestHandler struct {
	recorder *application.Recorder
	logger   *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(recorder *application.Recorder, logger *log.Logger) (*IngestHandler, error) {
	if recorder == nil {
		return nil, errors.New("telemetry ingest: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{recorder: recorder, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/telemetry.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload readingDTO
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Printf("telemetry ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	stored, err := h.recorder.Record(r.Context(), payload.toDomain())
	if errors.Is(err, telemetry.ErrInvalidReading) {
		http.Error(w, "invalid reading", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("telemetry ingest: store error: %v", err)
		http.Error(w, "store reading error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toDTO(stored))
}

// BatchHandler stores multiple readings in one request.
type BatchHandler struct {
	recorder *application.Recorder
	logger   *log.Logger
}

// NewBatchHandler constructs a batch ingest handler.
func NewBatchHandler(recorder *application.Recorder, logger *log.Logger) (*BatchHandler, error) {
	if recorder == nil {
		return nil, errors.New("telemetry batch: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BatchHandler{recorder: recorder, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/telemetry/batch.
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("telemetry batch: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	readings := make([]telemetry.Reading, 0, len(req.Readings))
	for _, payload := range req.Readings {
		readings = append(readings, payload.toDomain())
	}

	count, err := h.recorder.RecordBatch(r.Context(), readings)
	if errors.Is(err, telemetry.ErrInvalidReading) {
		http.Error(w, "invalid reading in batch", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("telemetry batch: store error: %v", err)
		http.Error(w, "store batch error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(batchResponse{
		Status:  "success",
		Count:   count,
		Message: fmt.Sprintf("Successfully stored %d telemetry readings", count),
	})
}

// HistoryHandler serves readings within a time range.
type HistoryHandler struct {
	query  telemetry.ReadingQuery
	logger *log.Logger
	now    func() time.Time
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(query telemetry.ReadingQuery, logger *log.Logger) (*HistoryHandler, error) {
	if query == nil {
		return nil, errors.New("telemetry history: nil query")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HistoryHandler{query: query, logger: logger, now: time.Now}, nil
}

// ServeHTTP handles GET /api/v1/telemetry/history. Missing bounds
// default to the last 24 hours ending now.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start, err := parseTimeQuery(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseTimeQuery(r, "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if end.IsZero() {
		end = h.now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-historyDefaultSpan)
	}
	if start.After(end) {
		http.Error(w, "start time must be before end time", http.StatusBadRequest)
		return
	}

	readings, err := h.query.Range(r.Context(), start, end)
	if err != nil {
		h.logger.Printf("telemetry history: query error: %v", err)
		http.Error(w, "query history error", http.StatusInternalServerError)
		return
	}

	data := make([]readingDTO, 0, len(readings))
	for _, reading := range readings {
		data = append(data, toDTO(reading))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(historyResponse{
		Count: len(data),
		Start: start,
		End:   end,
		Data:  data,
	})
}

// LatestHandler serves the most recent reading.
type LatestHandler struct {
	query  telemetry.ReadingQuery
	logger *log.Logger
}

// NewLatestHandler constructs a latest-reading handler.
func NewLatestHandler(query telemetry.ReadingQuery, logger *log.Logger) (*LatestHandler, error) {
	if query == nil {
		return nil, errors.New("telemetry latest: nil query")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LatestHandler{query: query, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/telemetry/latest.
func (h *LatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	latest, err := h.query.Latest(r.Context())
	if errors.Is(err, telemetry.ErrNoReadings) {
		http.Error(w, "no telemetry data available", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Printf("telemetry latest: query error: %v", err)
		http.Error(w, "query latest error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDTO(latest))
}

type readingDTO struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	PowerLoadKW float64   `json:"power_load_kw"`
	FuelRateLPH float64   `json:"fuel_consumption_lph"`
	Status      string    `json:"status"`
}

type batchRequest struct {
	Readings []readingDTO `json:"readings"`
}

type batchResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type historyResponse struct {
	Count int          `json:"count"`
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
	Data  []readingDTO `json:"data"`
}

func (p readingDTO) toDomain() telemetry.Reading {
	return telemetry.Reading{
		Timestamp:   p.Timestamp,
		PowerLoadKW: p.PowerLoadKW,
		FuelRateLPH: p.FuelRateLPH,
		Status:      p.Status,
	}
}

func toDTO(reading telemetry.Reading) readingDTO {
	return readingDTO{
		ID:          reading.ID,
		Timestamp:   reading.Timestamp.UTC(),
		PowerLoadKW: reading.PowerLoadKW,
		FuelRateLPH: reading.FuelRateLPH,
		Status:      reading.Status,
	}
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
