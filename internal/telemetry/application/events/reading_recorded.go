package events

import "time"

// ReadingRecorded is raised after a telemetry reading is stored.
type ReadingRecorded struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	PowerLoadKW float64   `json:"power_load_kw"`
	FuelRateLPH float64   `json:"fuel_consumption_lph"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
