package optimization

import "time"

// hoursPerDay is the size of the cyclic hour domain.
const hoursPerDay = 24

// DefaultCandidatePool is the number of lowest-usage hours eligible for
// inclusion in a shutdown window under the default policy.
const DefaultCandidatePool = 6

// ShutdownWindow is a contiguous cyclic block of hours recommended for
// generator shutdown. Invariant: DurationHours == len(Hours) and Hours
// is a single run of consecutive hours modulo 24, which may wrap past
// midnight.
type ShutdownWindow struct {
	StartHour     int
	DurationHours int
	Hours         []int
}

// EndHour returns the first hour after the window, modulo 24.
func (w ShutdownWindow) EndHour() int {
	return (w.StartHour + w.DurationHours) % hoursPerDay
}

// Contains reports whether the given hour of day falls inside the window.
func (w ShutdownWindow) Contains(hour int) bool {
	for _, h := range w.Hours {
		if h == hour {
			return true
		}
	}
	return false
}

// Anchor converts the window to absolute times against the most recent
// midnight (UTC) of the reference time. A window that wraps past hour
// 23 ends on the following day.
func (w ShutdownWindow) Anchor(reference time.Time) (start, end time.Time) {
	ref := reference.UTC()
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	start = midnight.Add(time.Duration(w.StartHour) * time.Hour)
	end = start.Add(time.Duration(w.DurationHours) * time.Hour)
	return start, end
}

// WindowSelector finds the best contiguous cyclic block of low-usage
// hours. One parameterized policy covers both historical behaviors:
// the default pool of 6 with duration bounds reproduces the constrained
// search, while a pool of 4 with bounds [1, 24] reduces to the
// unconstrained longest-run scan.
type WindowSelector struct {
	candidatePool int
	minHours      int
	maxHours      int
}

// NewWindowSelector validates the policy parameters. Pool and minimum
// must be at least 1 and the maximum must not be below the minimum;
// maximums beyond 24 are capped at the cyclic domain size.
func NewWindowSelector(candidatePool, minHours, maxHours int) (WindowSelector, error) {
	if candidatePool < 1 || minHours < 1 || maxHours < minHours {
		return WindowSelector{}, ErrInvalidInput
	}
	if maxHours > hoursPerDay {
		maxHours = hoursPerDay
	}
	return WindowSelector{
		candidatePool: candidatePool,
		minHours:      minHours,
		maxHours:      maxHours,
	}, nil
}

// Select scans every start hour on the 24-hour cycle and greedily
// extends a window while each hour stays in the candidate set, capped
// at the maximum duration. The longest window within [min, max] wins;
// ties keep the first one found in start-hour order. Extension wraps
// from hour 23 back to hour 0, so a window straddling midnight is
// detected as a single run rather than two fragments.
func (s WindowSelector) Select(hourlyAvg map[int]float64) (ShutdownWindow, error) {
	if len(hourlyAvg) == 0 {
		return ShutdownWindow{}, ErrInsufficientData
	}

	candidates := make(map[int]bool, s.candidatePool)
	for _, hour := range lowestHours(hourlyAvg, s.candidatePool) {
		candidates[hour] = true
	}

	best := ShutdownWindow{}
	for start := 0; start < hoursPerDay; start++ {
		if !candidates[start] {
			continue
		}
		length := 0
		for length < s.maxHours && candidates[(start+length)%hoursPerDay] {
			length++
		}
		if length < s.minHours || length <= best.DurationHours {
			continue
		}
		hours := make([]int, length)
		for i := range hours {
			hours[i] = (start + i) % hoursPerDay
		}
		best = ShutdownWindow{StartHour: start, DurationHours: length, Hours: hours}
	}

	if best.DurationHours == 0 {
		return ShutdownWindow{}, ErrNoWindowFound
	}
	return best, nil
}
