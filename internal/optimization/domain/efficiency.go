package optimization

import "sort"

// Stability labels for the efficiency report.
const (
	StabilityStable   = "stable"
	StabilityVariable = "variable"
)

// stabilityVarianceThreshold separates stable from variable operation.
// Fixed policy constant, not configurable.
const stabilityVarianceThreshold = 0.5

// rankedHourCount is how many hours appear in the most/least efficient lists.
const rankedHourCount = 3

// EfficiencyReport describes how much power the generator produces per
// unit of fuel and how consistent that ratio is.
type EfficiencyReport struct {
	// AvgEfficiency is the mean of per-reading efficiency (kW per L/h)
	// across all readings with a positive fuel rate.
	AvgEfficiency float64

	// Variance is the population variance (sum of squared deviations
	// divided by N) of the per-reading efficiencies. The population form
	// is used consistently everywhere efficiency spread is reported.
	Variance float64

	// HourlyEfficiency maps hour of day to the mean efficiency of the
	// qualifying readings observed in that hour.
	HourlyEfficiency map[int]float64

	// MostEfficientHours holds up to three hours sorted by descending
	// efficiency; LeastEfficientHours up to three sorted ascending.
	MostEfficientHours  []int
	LeastEfficientHours []int

	// Stability is "stable" when Variance is below 0.5, else "variable".
	Stability string
}

// AnalyzeEfficiency derives power-per-fuel efficiency from the reading
// sequence. Readings with a zero fuel rate are excluded rather than
// producing a divide by zero; if no reading qualifies the analysis
// fails with ErrInsufficientData.
func AnalyzeEfficiency(readings []Reading) (EfficiencyReport, error) {
	efficiencies := make([]float64, 0, len(readings))
	hourSums := make(map[int]float64)
	hourCounts := make(map[int]int)

	for _, r := range readings {
		if r.FuelRateLPH <= 0 {
			continue
		}
		eff := r.PowerLoadKW / r.FuelRateLPH
		efficiencies = append(efficiencies, eff)
		hour := r.Timestamp.UTC().Hour()
		hourSums[hour] += eff
		hourCounts[hour]++
	}

	if len(efficiencies) == 0 {
		return EfficiencyReport{}, ErrInsufficientData
	}

	var sum float64
	for _, eff := range efficiencies {
		sum += eff
	}
	mean := sum / float64(len(efficiencies))

	var squared float64
	for _, eff := range efficiencies {
		diff := eff - mean
		squared += diff * diff
	}
	variance := squared / float64(len(efficiencies))

	hourly := make(map[int]float64, len(hourSums))
	for hour, total := range hourSums {
		hourly[hour] = total / float64(hourCounts[hour])
	}

	ranked := rankHoursByEfficiency(hourly)
	most := make([]int, 0, rankedHourCount)
	for i := len(ranked) - 1; i >= 0 && len(most) < rankedHourCount; i-- {
		most = append(most, ranked[i])
	}
	least := ranked
	if len(least) > rankedHourCount {
		least = least[:rankedHourCount]
	}

	stability := StabilityVariable
	if variance < stabilityVarianceThreshold {
		stability = StabilityStable
	}

	return EfficiencyReport{
		AvgEfficiency:       mean,
		Variance:            variance,
		HourlyEfficiency:    hourly,
		MostEfficientHours:  most,
		LeastEfficientHours: append([]int(nil), least...),
		Stability:           stability,
	}, nil
}

// rankHoursByEfficiency sorts observed hours by ascending efficiency,
// ties broken by the smaller hour.
func rankHoursByEfficiency(hourly map[int]float64) []int {
	hours := make([]int, 0, len(hourly))
	for hour := range hourly {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		a, b := hours[i], hours[j]
		if hourly[a] != hourly[b] {
			return hourly[a] < hourly[b]
		}
		return a < b
	})
	return hours
}
