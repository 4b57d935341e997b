package optimization

import (
	"sort"
	"time"
)

// Reading is a single telemetry sample consumed by the analyzers.
// Values are immutable once produced; the analyzers never modify them.
type Reading struct {
	Timestamp   time.Time
	PowerLoadKW float64
	FuelRateLPH float64
}

// SortReadings returns a chronologically ordered copy of readings.
// The sort is stable, so samples sharing a timestamp keep their
// insertion order.
func SortReadings(readings []Reading) []Reading {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// lowestHours returns up to k hours sorted by ascending average value.
// Ties are broken by the smaller hour so the result is deterministic.
func lowestHours(hourlyAvg map[int]float64, k int) []int {
	hours := make([]int, 0, len(hourlyAvg))
	for hour := range hourlyAvg {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		a, b := hours[i], hours[j]
		if hourlyAvg[a] != hourlyAvg[b] {
			return hourlyAvg[a] < hourlyAvg[b]
		}
		return a < b
	})
	if k > len(hours) {
		k = len(hours)
	}
	return hours[:k]
}
