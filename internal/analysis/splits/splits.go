// Package splits provides split-factor detection and back-adjustment of
// price series.
package splits

import (
	"math"

	"wheelstrat/internal/models"
)

// canonicalRatios are the price-adjustment factors worth flagging, as the
// post/pre close ratio: forward splits (1/2 for a 2:1), reverse splits, and
// the common fractional splits.
var canonicalRatios = []float64{
	1.0 / 2, 1.0 / 3, 1.0 / 4, 1.0 / 5, 1.0 / 10,
	2, 3, 4,
	2.0 / 3, 3.0 / 2,
}

const (
	// ratioJumpLow/High bound the bar-to-bar close ratio band considered
	// normal price movement; jumps outside it are split candidates.
	ratioJumpLow  = 0.75
	ratioJumpHigh = 1.5
	// ratioTolerance is the relative distance to a canonical ratio within
	// which a jump is accepted as a split.
	ratioTolerance = 0.15
)

// Detect flags bar-to-bar close ratio jumps that land near a canonical
// split ratio. Each detection carries confidence = 1 - relative difference
// from the matched ratio. Detected records are meant to fully replace any
// previous detection run for the symbol; merging is the caller's bug.
func Detect(symbol string, bars []models.PriceBar) []models.SplitFactor {
	var factors []models.SplitFactor

	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Close, bars[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}

		jump := cur / prev
		if jump >= ratioJumpLow && jump <= ratioJumpHigh {
			continue
		}

		ratio, relDiff, ok := nearestCanonical(jump)
		if !ok {
			continue
		}

		factors = append(factors, models.SplitFactor{
			Symbol:        symbol,
			Date:          bars[i].Date,
			Factor:        ratio,
			DetectedRatio: jump,
			Source:        models.SourceDetected,
			Confidence:    1 - relDiff,
		})
	}

	return factors
}

// Merge resolves detected and authoritative split records for a symbol.
// Authoritative records always win for their date; detected records fill
// the remaining dates.
func Merge(authoritative, detected []models.SplitFactor) []models.SplitFactor {
	byDate := make(map[string]bool, len(authoritative))
	merged := make([]models.SplitFactor, 0, len(authoritative)+len(detected))
	for _, f := range authoritative {
		byDate[f.Date] = true
		merged = append(merged, f)
	}
	for _, f := range detected {
		if !byDate[f.Date] {
			merged = append(merged, f)
		}
	}
	return merged
}

// Apply back-adjusts a bar series for the given split factors. It walks
// newest to oldest accumulating a multiplicative factor as split effective
// dates are crossed, scaling OHLC up and volume down for every bar strictly
// before the split date. The input is never mutated; a derived copy is
// returned, consistent with vendor back-adjustment conventions.
func Apply(bars []models.PriceBar, factors []models.SplitFactor) []models.PriceBar {
	adjusted := make([]models.PriceBar, len(bars))
	copy(adjusted, bars)
	if len(factors) == 0 {
		return adjusted
	}

	byDate := make(map[string]float64, len(factors))
	for _, f := range factors {
		if f.Factor > 0 {
			byDate[f.Date] = f.Factor
		}
	}

	cumulative := 1.0
	for i := len(adjusted) - 1; i >= 0; i-- {
		if cumulative != 1.0 {
			adjusted[i].Open *= cumulative
			adjusted[i].High *= cumulative
			adjusted[i].Low *= cumulative
			adjusted[i].Close *= cumulative
			adjusted[i].Volume /= cumulative
		}
		// The factor applies only to bars strictly before its date, so it
		// joins the accumulator after this bar is handled.
		if f, ok := byDate[adjusted[i].Date]; ok {
			cumulative *= f
		}
	}

	return adjusted
}

func nearestCanonical(jump float64) (ratio, relDiff float64, ok bool) {
	best := math.MaxFloat64
	for _, r := range canonicalRatios {
		diff := math.Abs(jump-r) / r
		if diff < best {
			best = diff
			ratio = r
		}
	}
	if best > ratioTolerance {
		return 0, 0, false
	}
	return ratio, best, true
}
