package optimization

import "errors"

var (
	// ErrInsufficientData is returned when the reading history is empty or
	// too small for the requested analysis.
	ErrInsufficientData = errors.New("optimization: insufficient data")
	// ErrNoWindowFound is returned when no contiguous block of candidate
	// hours satisfies the window constraints.
	ErrNoWindowFound = errors.New("optimization: no shutdown window found")
	// ErrInvalidInput is returned when a parameter is negative or out of range.
	ErrInvalidInput = errors.New("optimization: invalid input")
)
