package optimization

// LowestHourCount is the number of low-usage hours reported by the
// usage pattern analysis.
const LowestHourCount = 4

// UsagePattern summarizes power-load behavior over the analysis period.
type UsagePattern struct {
	AvgPowerKW float64
	MinPowerKW float64
	MaxPowerKW float64

	// HourlyAvgKW maps hour of day (0-23, UTC) to the mean power load of
	// all readings observed in that hour. Only observed hours are present.
	HourlyAvgKW map[int]float64

	// LowestHours lists the hours with the smallest mean load, ascending
	// by load. These are the shutdown candidates for the default policy.
	LowestHours []int
}

// AnalyzeUsagePattern reduces a reading sequence to per-hour load
// averages and global load statistics.
func AnalyzeUsagePattern(readings []Reading) (UsagePattern, error) {
	if len(readings) == 0 {
		return UsagePattern{}, ErrInsufficientData
	}

	var sum float64
	minLoad := readings[0].PowerLoadKW
	maxLoad := readings[0].PowerLoadKW

	hourSums := make(map[int]float64)
	hourCounts := make(map[int]int)

	for _, r := range readings {
		load := r.PowerLoadKW
		sum += load
		if load < minLoad {
			minLoad = load
		}
		if load > maxLoad {
			maxLoad = load
		}
		hour := r.Timestamp.UTC().Hour()
		hourSums[hour] += load
		hourCounts[hour]++
	}

	hourlyAvg := make(map[int]float64, len(hourSums))
	for hour, total := range hourSums {
		hourlyAvg[hour] = total / float64(hourCounts[hour])
	}

	return UsagePattern{
		AvgPowerKW:  sum / float64(len(readings)),
		MinPowerKW:  minLoad,
		MaxPowerKW:  maxLoad,
		HourlyAvgKW: hourlyAvg,
		LowestHours: lowestHours(hourlyAvg, LowestHourCount),
	}, nil
}
