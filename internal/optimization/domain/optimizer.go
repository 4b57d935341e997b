package optimization

import (
	"errors"
	"time"
)

// Default analysis parameters.
const (
	DefaultMinShutdownHours  = 2
	DefaultMaxShutdownHours  = 8
	DefaultFuelPricePerLiter = 1.50
)

// Params control a single optimization run.
type Params struct {
	MinShutdownHours  int
	MaxShutdownHours  int
	CandidatePool     int
	FuelPricePerLiter float64
	ForecastHours     int
}

// DefaultParams returns the documented defaults: a 2-8 hour window from
// a pool of 6 candidate hours, $1.50 per liter, 24 forecast hours.
func DefaultParams() Params {
	return Params{
		MinShutdownHours:  DefaultMinShutdownHours,
		MaxShutdownHours:  DefaultMaxShutdownHours,
		CandidatePool:     DefaultCandidatePool,
		FuelPricePerLiter: DefaultFuelPricePerLiter,
		ForecastHours:     DefaultForecastHours,
	}
}

// withDefaults fills zero-valued fields from DefaultParams. Explicitly
// negative values are left in place so validation can reject them.
func (p Params) withDefaults() Params {
	defaults := DefaultParams()
	if p.MinShutdownHours == 0 {
		p.MinShutdownHours = defaults.MinShutdownHours
	}
	if p.MaxShutdownHours == 0 {
		p.MaxShutdownHours = defaults.MaxShutdownHours
	}
	if p.CandidatePool == 0 {
		p.CandidatePool = defaults.CandidatePool
	}
	if p.FuelPricePerLiter == 0 {
		p.FuelPricePerLiter = defaults.FuelPricePerLiter
	}
	if p.ForecastHours == 0 {
		p.ForecastHours = defaults.ForecastHours
	}
	return p
}

// Analysis is the complete numeric result of one optimization run.
// It is a value object: constructed once, never updated in place.
type Analysis struct {
	Pattern    UsagePattern
	Efficiency EfficiencyReport

	// Forecast is nil when the history is shorter than
	// MinForecastObservations; the window and savings results do not
	// depend on it.
	Forecast *LoadForecast

	Window      ShutdownWindow
	WindowStart time.Time
	WindowEnd   time.Time
	Savings     SavingsEstimate

	// AvgFuelRateLPH is the mean fuel rate across all readings in the
	// analysis period, not just the window hours.
	AvgFuelRateLPH float64
	ReadingCount   int
	GeneratedAt    time.Time
}

// Optimizer runs the full analysis pipeline. It is stateless and safe
// for concurrent use; each call is a pure function of its inputs apart
// from the forecaster's jitter source.
type Optimizer struct {
	forecaster *Forecaster
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithForecaster replaces the default forecaster, typically to fix the
// jitter source in tests.
func WithForecaster(f *Forecaster) OptimizerOption {
	return func(o *Optimizer) {
		if f != nil {
			o.forecaster = f
		}
	}
}

// NewOptimizer constructs an Optimizer.
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{forecaster: NewForecaster()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs usage, efficiency and forecast analysis over the
// readings, selects the best shutdown window and estimates savings.
// Readings are sorted by timestamp before analysis; callers need not
// guarantee order. The reference time anchors the recommended window
// to absolute instants and stamps the result.
func (o *Optimizer) Analyze(readings []Reading, params Params, reference time.Time) (*Analysis, error) {
	params = params.withDefaults()
	if params.FuelPricePerLiter < 0 {
		return nil, ErrInvalidInput
	}

	sorted := SortReadings(readings)

	pattern, err := AnalyzeUsagePattern(sorted)
	if err != nil {
		return nil, err
	}
	efficiency, err := AnalyzeEfficiency(sorted)
	if err != nil {
		return nil, err
	}

	var forecast *LoadForecast
	result, err := o.forecaster.Forecast(sorted, params.ForecastHours)
	switch {
	case err == nil:
		forecast = &result
	case errors.Is(err, ErrInsufficientData):
		// Short histories produce no forecast; the window and savings
		// results are still valid.
	default:
		return nil, err
	}

	selector, err := NewWindowSelector(params.CandidatePool, params.MinShutdownHours, params.MaxShutdownHours)
	if err != nil {
		return nil, err
	}
	window, err := selector.Select(pattern.HourlyAvgKW)
	if err != nil {
		return nil, err
	}

	var fuelSum float64
	for _, r := range sorted {
		fuelSum += r.FuelRateLPH
	}
	avgFuelRate := fuelSum / float64(len(sorted))

	savings, err := EstimateSavings(window.DurationHours, avgFuelRate, params.FuelPricePerLiter)
	if err != nil {
		return nil, err
	}

	start, end := window.Anchor(reference)

	return &Analysis{
		Pattern:        pattern,
		Efficiency:     efficiency,
		Forecast:       forecast,
		Window:         window,
		WindowStart:    start,
		WindowEnd:      end,
		Savings:        savings,
		AvgFuelRateLPH: avgFuelRate,
		ReadingCount:   len(sorted),
		GeneratedAt:    reference.UTC(),
	}, nil
}
