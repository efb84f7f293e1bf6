// Package strategy provides the per-symbol recipe catalog and the rule
// backtesting engine.
package strategy

import (
	"math"

	"wheelstrat/internal/models"
)

// PredicateKind selects one of the fixed predicate shapes a recipe can use.
// Recipes are data, not closures: the kind plus its params fully describe
// the rule, so the catalog stays serializable and testable in isolation.
type PredicateKind string

const (
	PredicateSMABand          PredicateKind = "SMA_BAND"
	PredicateBollingerBand    PredicateKind = "BOLLINGER_BAND"
	PredicateRSIThreshold     PredicateKind = "RSI_THRESHOLD"
	PredicateDrawdownFromHigh PredicateKind = "DRAWDOWN_FROM_HIGH"
	PredicateNDayReturn       PredicateKind = "N_DAY_RETURN"
	// PredicateAlways fires on every bar. Used by tests and as a baseline.
	PredicateAlways PredicateKind = "ALWAYS"
)

// PredicateParams parameterizes a predicate shape. Only the fields the
// kind reads are meaningful.
type PredicateParams struct {
	Period    int     // trailing window for SMA/Bollinger/RSI/drawdown
	BandPct   float64 // SMA band half-width as a fraction of the SMA
	StdDevMul float64 // Bollinger band standard deviation multiplier
	Threshold float64 // RSI ceiling, or N-day return ceiling
	Days      int     // N-day return lookback
}

// evaluate runs the predicate against a price-history prefix and the
// current price. History is the prefix strictly before the evaluation bar.
func evaluate(kind PredicateKind, params PredicateParams, history []models.PriceBar, price float64) bool {
	switch kind {
	case PredicateAlways:
		return true
	case PredicateSMABand:
		sma, ok := trailingSMA(history, params.Period)
		if !ok || sma <= 0 {
			return false
		}
		return math.Abs(price-sma)/sma <= params.BandPct
	case PredicateBollingerBand:
		sma, ok := trailingSMA(history, params.Period)
		if !ok {
			return false
		}
		sd := trailingStdDev(history, params.Period, sma)
		return price <= sma-params.StdDevMul*sd
	case PredicateRSIThreshold:
		rsi, ok := trailingRSI(history, price, params.Period)
		return ok && rsi <= params.Threshold
	case PredicateDrawdownFromHigh:
		high, ok := trailingHigh(history, params.Period)
		if !ok || high <= 0 {
			return false
		}
		// Compared in price space: price/high-1 loses the exact boundary to
		// rounding (108/120-1 != -0.10).
		return price <= high*(1+params.Threshold)
	case PredicateNDayReturn:
		if params.Days <= 0 || len(history) < params.Days {
			return false
		}
		base := history[len(history)-params.Days].Close
		if base <= 0 {
			return false
		}
		return price/base-1 <= params.Threshold
	default:
		return false
	}
}

func trailingSMA(history []models.PriceBar, period int) (float64, bool) {
	if period <= 0 || len(history) < period {
		return 0, false
	}
	var sum float64
	for _, b := range history[len(history)-period:] {
		sum += b.Close
	}
	return sum / float64(period), true
}

func trailingStdDev(history []models.PriceBar, period int, mean float64) float64 {
	if period <= 0 || len(history) < period {
		return 0
	}
	var variance float64
	for _, b := range history[len(history)-period:] {
		diff := b.Close - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(period))
}

func trailingHigh(history []models.PriceBar, period int) (float64, bool) {
	if period <= 0 || len(history) < period {
		return 0, false
	}
	high := history[len(history)-period].Close
	for _, b := range history[len(history)-period:] {
		if b.Close > high {
			high = b.Close
		}
	}
	return high, true
}

// trailingRSI is the classic simple-average RSI over the last period
// changes, with the current price as the final observation.
func trailingRSI(history []models.PriceBar, price float64, period int) (float64, bool) {
	if period <= 0 || len(history) < period {
		return 0, false
	}

	closes := make([]float64, 0, period+1)
	for _, b := range history[len(history)-period:] {
		closes = append(closes, b.Close)
	}
	closes = append(closes, price)

	var gains, losses float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}
