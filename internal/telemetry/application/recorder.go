package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/eventing"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application/events"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

// Recorder validates and stores telemetry readings and fans out
// ReadingRecorded events to live consumers.
type Recorder struct {
	repo   telemetry.ReadingRepository
	bus    eventing.EventBus
	logger *log.Logger
}

// NewRecorder constructs a Recorder. The bus may be nil when no live
// fan-out is wired.
func NewRecorder(repo telemetry.ReadingRepository, bus eventing.EventBus, logger *log.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, errors.New("telemetry recorder: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{repo: repo, bus: bus, logger: logger}, nil
}

// Record validates and stores a single reading.
func (r *Recorder) Record(ctx context.Context, reading telemetry.Reading) (telemetry.Reading, error) {
	start := time.Now()

	reading = reading.Normalized()
	if err := reading.Validate(); err != nil {
		metrics.IncIngestError("validation")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return telemetry.Reading{}, err
	}

	stored, err := r.repo.Insert(ctx, reading)
	if err != nil {
		metrics.IncIngestError("storage")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return telemetry.Reading{}, err
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	r.publish(ctx, stored)
	return stored, nil
}

// RecordBatch stores readings in a single transaction. The whole batch
// is rejected when any reading fails validation.
func (r *Recorder) RecordBatch(ctx context.Context, readings []telemetry.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}
	start := time.Now()

	normalized := make([]telemetry.Reading, 0, len(readings))
	for _, reading := range readings {
		reading = reading.Normalized()
		if err := reading.Validate(); err != nil {
			metrics.IncIngestError("validation")
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			return 0, err
		}
		normalized = append(normalized, reading)
	}

	count, err := r.repo.InsertBatch(ctx, normalized)
	if err != nil {
		metrics.IncIngestError("storage")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return 0, err
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	for _, reading := range normalized {
		r.publish(ctx, reading)
	}
	return count, nil
}

func (r *Recorder) publish(ctx context.Context, reading telemetry.Reading) {
	if r.bus == nil {
		return
	}
	event := events.ReadingRecorded{
		ID:          reading.ID,
		Timestamp:   reading.Timestamp,
		PowerLoadKW: reading.PowerLoadKW,
		FuelRateLPH: reading.FuelRateLPH,
		Status:      reading.Status,
		OccurredAt:  time.Now().UTC(),
	}
	if err := r.bus.Publish(ctx, event); err != nil {
		r.logger.Printf("telemetry recorder: publish error: %v", err)
	}
}
