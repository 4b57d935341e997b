package optimization

import (
	"math/rand"
	"time"
)

// Confidence labels for forecast points.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// MinForecastObservations is the smallest history that supports a
// forecast. Two full days of hourly coverage keeps the hour-of-day
// averages from being dominated by single samples.
const MinForecastObservations = 48

// DefaultForecastHours is the forecast horizon used when none is given.
const DefaultForecastHours = 24

// confidenceHorizonHours is the last offset still labeled high confidence.
const confidenceHorizonHours = 6

// jitterSpread is the total width of the multiplicative noise band
// applied to each forecast point ([0.95, 1.05]).
const jitterSpread = 0.10

// ForecastPoint is a predicted load for one future hour.
type ForecastPoint struct {
	Timestamp       time.Time
	HourOfDay       int
	PredictedLoadKW float64
	Confidence      string
}

// LoadForecast is a seasonal-naive load projection. Point values carry
// random jitter; callers needing repeatability must fix the jitter
// source and otherwise rely only on aggregate ranges.
type LoadForecast struct {
	// GeneratedFrom is the timestamp of the most recent observation the
	// forecast extends from.
	GeneratedFrom time.Time
	Points        []ForecastPoint
}

// Forecaster extrapolates near-term hourly load from historical
// hour-of-day and day-of-week averages. It fits no model and learns no
// parameters; it is a seasonal-naive heuristic.
type Forecaster struct {
	jitter func() float64
}

// ForecasterOption configures a Forecaster.
type ForecasterOption func(*Forecaster)

// WithJitter replaces the random jitter source. Tests fix it to a
// constant to make forecasts deterministic.
func WithJitter(fn func() float64) ForecasterOption {
	return func(f *Forecaster) {
		if fn != nil {
			f.jitter = fn
		}
	}
}

// NewForecaster constructs a Forecaster with a time-seeded jitter source.
func NewForecaster(opts ...ForecasterOption) *Forecaster {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	f := &Forecaster{
		jitter: func() float64 {
			return 1 - jitterSpread/2 + rng.Float64()*jitterSpread
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forecast predicts hourly load for the given horizon, anchored at the
// most recent reading. Histories below MinForecastObservations fail
// with ErrInsufficientData.
func (f *Forecaster) Forecast(readings []Reading, horizonHours int) (LoadForecast, error) {
	if len(readings) < MinForecastObservations {
		return LoadForecast{}, ErrInsufficientData
	}
	if horizonHours <= 0 {
		horizonHours = DefaultForecastHours
	}

	var (
		total     float64
		latest    time.Time
		hourSums  = make(map[int]float64)
		hourCount = make(map[int]int)
		daySums   = make(map[time.Weekday]float64)
		dayCount  = make(map[time.Weekday]int)
	)
	for _, r := range readings {
		ts := r.Timestamp.UTC()
		if ts.After(latest) {
			latest = ts
		}
		total += r.PowerLoadKW
		hour := ts.Hour()
		hourSums[hour] += r.PowerLoadKW
		hourCount[hour]++
		day := ts.Weekday()
		daySums[day] += r.PowerLoadKW
		dayCount[day]++
	}
	globalMean := total / float64(len(readings))

	hourAvg := make(map[int]float64, len(hourSums))
	for hour, sum := range hourSums {
		hourAvg[hour] = sum / float64(hourCount[hour])
	}
	dayAvg := make(map[time.Weekday]float64, len(daySums))
	for day, sum := range daySums {
		dayAvg[day] = sum / float64(dayCount[day])
	}

	points := make([]ForecastPoint, 0, horizonHours)
	baseDay := latest.YearDay()
	baseYear := latest.Year()
	for i := 1; i <= horizonHours; i++ {
		target := latest.Add(time.Duration(i) * time.Hour)
		hour := target.Hour()

		predicted, ok := hourAvg[hour]
		if !ok {
			predicted = globalMean
		}
		if target.Year() != baseYear || target.YearDay() != baseDay {
			if avg, ok := dayAvg[target.Weekday()]; ok {
				predicted += avg - globalMean
			}
		}
		predicted *= f.jitter()
		if predicted < 0 {
			predicted = 0
		}

		confidence := ConfidenceMedium
		if i <= confidenceHorizonHours {
			confidence = ConfidenceHigh
		}

		points = append(points, ForecastPoint{
			Timestamp:       target,
			HourOfDay:       hour,
			PredictedLoadKW: predicted,
			Confidence:      confidence,
		})
	}

	return LoadForecast{GeneratedFrom: latest, Points: points}, nil
}
