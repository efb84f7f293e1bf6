package pricing

import (
	"math"

	"wheelstrat/internal/models"
)

// AnnualizedYield computes the annualized return of collecting premium
// against strike collateral over dte days. Returns false when the premium
// is absent or the inputs cannot produce a meaningful yield; an absent
// premium is never treated as zero.
func AnnualizedYield(premium models.Premium, strike float64, dte int) (float64, bool) {
	p, ok := premium.Value()
	if !ok || strike <= 0 || dte <= 0 {
		return 0, false
	}
	return (p / strike) * (365.0 / float64(dte)), true
}

// WinProbFromDelta estimates the probability that a short option expires
// worthless from its delta. Delta is taken as magnitude; values outside
// (0, 1) are not a usable quote.
func WinProbFromDelta(delta float64) (float64, bool) {
	d := math.Abs(delta)
	if d <= 0 || d >= 1 || math.IsNaN(d) {
		return 0, false
	}
	return 1 - d, true
}
