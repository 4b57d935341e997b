package optimization

import (
	"errors"
	"testing"
	"time"
)

// flatProfile returns a 24-hour profile at base kW with the given hours
// overridden.
func flatProfile(base float64, overrides map[int]float64) map[int]float64 {
	profile := make(map[int]float64, hoursPerDay)
	for hour := 0; hour < hoursPerDay; hour++ {
		profile[hour] = base
	}
	for hour, v := range overrides {
		profile[hour] = v
	}
	return profile
}

func mustSelector(t *testing.T, pool, min, max int) WindowSelector {
	t.Helper()
	s, err := NewWindowSelector(pool, min, max)
	if err != nil {
		t.Fatalf("unexpected error building selector: %v", err)
	}
	return s
}

func TestSelectWindowWrapsMidnight(t *testing.T) {
	profile := flatProfile(150, map[int]float64{22: 50, 23: 50, 0: 50, 1: 50})

	s := mustSelector(t, 4, 1, 24)
	window, err := s.Select(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.StartHour != 22 || window.DurationHours != 4 {
		t.Fatalf("expected start 22 duration 4, got start %d duration %d", window.StartHour, window.DurationHours)
	}
	wantHours := []int{22, 23, 0, 1}
	for i, hour := range wantHours {
		if window.Hours[i] != hour {
			t.Fatalf("expected hours %v, got %v", wantHours, window.Hours)
		}
	}
	if window.EndHour() != 2 {
		t.Fatalf("expected end hour 2, got %d", window.EndHour())
	}
	if !window.Contains(23) || !window.Contains(0) || window.Contains(2) {
		t.Fatalf("containment wrong for window %v", window.Hours)
	}
}

func TestSelectWindowLowBand(t *testing.T) {
	profile := flatProfile(150, map[int]float64{2: 50, 3: 50, 4: 50, 5: 50})

	s := mustSelector(t, 4, 1, 24)
	window, err := s.Select(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.StartHour != 2 || window.DurationHours != 4 {
		t.Fatalf("expected start 2 duration 4, got start %d duration %d", window.StartHour, window.DurationHours)
	}
}

func TestSelectWindowConstrainedUniformProfile(t *testing.T) {
	// All hours equal: the candidate pool falls to the six smallest hour
	// labels, and the duration cap trims the run to the maximum.
	profile := flatProfile(100, nil)

	s := mustSelector(t, DefaultCandidatePool, 3, 5)
	window, err := s.Select(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.DurationHours < 3 || window.DurationHours > 5 {
		t.Fatalf("expected duration within [3, 5], got %d", window.DurationHours)
	}
	if window.StartHour != 0 || window.DurationHours != 5 {
		t.Fatalf("expected start 0 duration 5, got start %d duration %d", window.StartHour, window.DurationHours)
	}
}

func TestSelectWindowDefaultPolicyIgnoresShortRuns(t *testing.T) {
	// Two candidate runs: hours 2-5 and hours 14-15. The longer run wins.
	profile := flatProfile(150, map[int]float64{
		2: 50, 3: 50, 4: 50, 5: 50,
		14: 60, 15: 60,
	})

	s := mustSelector(t, DefaultCandidatePool, DefaultMinShutdownHours, DefaultMaxShutdownHours)
	window, err := s.Select(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.StartHour != 2 || window.DurationHours != 4 {
		t.Fatalf("expected start 2 duration 4, got start %d duration %d", window.StartHour, window.DurationHours)
	}
}

func TestSelectWindowNoQualifyingRun(t *testing.T) {
	// Candidates isolated at hours 3 and 10: no run reaches 2 hours.
	profile := flatProfile(150, map[int]float64{3: 50, 10: 50})

	s := mustSelector(t, 2, 2, 8)
	_, err := s.Select(profile)
	if !errors.Is(err, ErrNoWindowFound) {
		t.Fatalf("expected ErrNoWindowFound, got %v", err)
	}
}

func TestSelectWindowEmptyProfile(t *testing.T) {
	s := mustSelector(t, DefaultCandidatePool, 2, 8)
	_, err := s.Select(nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestNewWindowSelectorValidation(t *testing.T) {
	cases := []struct{ pool, min, max int }{
		{0, 1, 1},
		{1, 0, 1},
		{1, 3, 2},
		{-1, 2, 8},
	}
	for _, c := range cases {
		if _, err := NewWindowSelector(c.pool, c.min, c.max); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("pool=%d min=%d max=%d: expected ErrInvalidInput, got %v", c.pool, c.min, c.max, err)
		}
	}
}

func TestNewWindowSelectorCapsMaximum(t *testing.T) {
	profile := flatProfile(100, nil)

	s := mustSelector(t, 24, 1, 48)
	window, err := s.Select(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.DurationHours != 24 {
		t.Fatalf("expected duration capped at 24, got %d", window.DurationHours)
	}
}

func TestWindowAnchor(t *testing.T) {
	window := ShutdownWindow{StartHour: 22, DurationHours: 4, Hours: []int{22, 23, 0, 1}}
	reference := time.Date(2025, 11, 14, 10, 30, 0, 0, time.UTC)

	start, end := window.Anchor(reference)
	wantStart := time.Date(2025, 11, 14, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 11, 15, 2, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
}
