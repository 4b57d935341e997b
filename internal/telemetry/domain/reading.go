package telemetry

import (
	"context"
	"time"
)

// Generator status labels carried on each reading.
const (
	StatusOn  = "ON"
	StatusOff = "OFF"
)

// Reading is a single generator telemetry sample written to storage.
type Reading struct {
	ID          int64
	Timestamp   time.Time
	PowerLoadKW float64
	FuelRateLPH float64
	Status      string
}

// Normalized returns a copy with the timestamp forced to UTC and an
// empty status defaulted to ON.
func (r Reading) Normalized() Reading {
	r.Timestamp = r.Timestamp.UTC()
	if r.Status == "" {
		r.Status = StatusOn
	}
	return r
}

// Validate rejects readings that cannot be stored: zero timestamps,
// negative loads or fuel rates, and unknown status labels.
func (r Reading) Validate() error {
	if r.Timestamp.IsZero() {
		return ErrInvalidReading
	}
	if r.PowerLoadKW < 0 || r.FuelRateLPH < 0 {
		return ErrInvalidReading
	}
	if r.Status != StatusOn && r.Status != StatusOff {
		return ErrInvalidReading
	}
	return nil
}

// Stats summarizes the stored reading history.
type Stats struct {
	Count      int64
	First      time.Time
	Last       time.Time
	AvgPowerKW float64
	AvgFuelLPH float64
}

// ReadingRepository persists telemetry readings.
type ReadingRepository interface {
	Insert(ctx context.Context, reading Reading) (Reading, error)
	InsertBatch(ctx context.Context, readings []Reading) (int, error)
}

// ReadingQuery loads readings for analysis and display.
type ReadingQuery interface {
	Range(ctx context.Context, start, end time.Time) ([]Reading, error)
	Latest(ctx context.Context) (Reading, error)
	Stats(ctx context.Context) (Stats, error)
}
