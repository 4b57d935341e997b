package optimization

// monthlyProjectionDays is the fixed day count behind the monthly
// projection. A calendar-aware figure is deliberately not used.
const monthlyProjectionDays = 30

// SavingsEstimate projects fuel and cost savings for one shutdown
// window per day. All values are non-negative.
type SavingsEstimate struct {
	FuelSavedLiters   float64
	DailySavingsUSD   float64
	MonthlySavingsUSD float64
}

// EstimateSavings converts a window duration and the average fuel rate
// over the whole analysis period into fuel and cost projections.
// Negative rates or prices and non-positive durations are rejected with
// ErrInvalidInput rather than producing negative savings.
func EstimateSavings(durationHours int, avgFuelRateLPH, pricePerLiter float64) (SavingsEstimate, error) {
	if durationHours <= 0 || avgFuelRateLPH < 0 || pricePerLiter < 0 {
		return SavingsEstimate{}, ErrInvalidInput
	}

	fuelSaved := avgFuelRateLPH * float64(durationHours)
	daily := fuelSaved * pricePerLiter

	return SavingsEstimate{
		FuelSavedLiters:   fuelSaved,
		DailySavingsUSD:   daily,
		MonthlySavingsUSD: daily * monthlyProjectionDays,
	}, nil
}
