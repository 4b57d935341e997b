// Package telemetry bridges the telemetry reading store into the
// optimization analysis pipeline.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/domain"
	telemetrydomain "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

// QueryAdapter adapts telemetry reading queries to the optimization
// reading source.
type QueryAdapter struct {
	query telemetrydomain.ReadingQuery
}

// NewQueryAdapter constructs the adapter.
func NewQueryAdapter(query telemetrydomain.ReadingQuery) (*QueryAdapter, error) {
	if query == nil {
		return nil, errors.New("telemetry query adapter: nil query")
	}
	return &QueryAdapter{query: query}, nil
}

// ReadingsBetween returns readings within [start, end] mapped for
// analysis. Readings are not filtered by status; off-hours samples are
// part of the usage pattern.
func (a *QueryAdapter) ReadingsBetween(ctx context.Context, start, end time.Time) ([]optimization.Reading, error) {
	if a == nil || a.query == nil {
		return nil, errors.New("telemetry query adapter: nil query")
	}
	readings, err := a.query.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}
	result := make([]optimization.Reading, 0, len(readings))
	for _, reading := range readings {
		result = append(result, optimization.Reading{
			Timestamp:   reading.Timestamp,
			PowerLoadKW: reading.PowerLoadKW,
			FuelRateLPH: reading.FuelRateLPH,
		})
	}
	return result, nil
}
