// Package pricing provides Black-Scholes option pricing and implied
// volatility inversion.
package pricing

import (
	"math"

	"wheelstrat/internal/models"
)

const (
	ivMin        = 0.0001
	ivMax        = 5.0
	ivIterations = 60
	ivTolerance  = 1e-4
)

// Price computes the Black-Scholes price of a European option. No dividend
// yield term. Returns false when the market state is invalid (non-positive
// or non-finite spot/strike). At or past expiry, or with zero volatility,
// the intrinsic value is returned: that boundary is well-defined, not an
// error.
func Price(spot, strike, timeToExpYears, rate, volatility float64, right models.OptionRight) (float64, bool) {
	if spot <= 0 || strike <= 0 || !isFinite(spot) || !isFinite(strike) {
		return 0, false
	}

	if timeToExpYears <= 0 || volatility <= 0 {
		return intrinsic(spot, strike, right), true
	}

	sqrtT := math.Sqrt(timeToExpYears)
	d1 := (math.Log(spot/strike) + (rate+volatility*volatility/2)*timeToExpYears) / (volatility * sqrtT)
	d2 := d1 - volatility*sqrtT

	discount := math.Exp(-rate * timeToExpYears)
	if right == models.Call {
		return spot*normCDF(d1) - strike*discount*normCDF(d2), true
	}
	return strike*discount*normCDF(-d2) - spot*normCDF(-d1), true
}

// ImpliedVolFromPremium inverts Price for volatility by bisection over
// [0.0001, 5.0]. Returns false when the observed premium lies outside the
// feasible price range (below intrinsic, or above the price at maximum
// volatility): that indicates a bad quote, and clamping to a boundary vol
// would be misleadingly precise.
func ImpliedVolFromPremium(spot, strike, timeToExpYears, rate, premium float64, right models.OptionRight) (float64, bool) {
	if spot <= 0 || strike <= 0 || timeToExpYears <= 0 || premium < 0 {
		return 0, false
	}

	if premium < intrinsic(spot, strike, right) {
		return 0, false
	}
	ceiling, ok := Price(spot, strike, timeToExpYears, rate, ivMax, right)
	if !ok || premium > ceiling {
		return 0, false
	}

	lo, hi := ivMin, ivMax
	for i := 0; i < ivIterations; i++ {
		mid := (lo + hi) / 2
		price, ok := Price(spot, strike, timeToExpYears, rate, mid, right)
		if !ok {
			return 0, false
		}
		diff := price - premium
		if math.Abs(diff) < ivTolerance {
			return mid, true
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return (lo + hi) / 2, true
}

// intrinsic returns the exercise value of the option.
func intrinsic(spot, strike float64, right models.OptionRight) float64 {
	if right == models.Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// normCDF is the cumulative standard normal distribution, computed with the
// Abramowitz-Stegun polynomial approximation (absolute error ~1e-7).
func normCDF(x float64) float64 {
	if x < 0 {
		return 1 - normCDF(-x)
	}

	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)

	t := 1 / (1 + p*x)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	return 1 - pdf*poly
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
