package telemetry

import "errors"

// ErrInvalidReading indicates a reading that fails validation.
var ErrInvalidReading = errors.New("telemetry: invalid reading")

// ErrNoReadings indicates an empty reading history.
var ErrNoReadings = errors.New("telemetry: no readings")
