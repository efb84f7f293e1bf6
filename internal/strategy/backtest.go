package strategy

import (
	"wheelstrat/internal/analysis/volatility"
	"wheelstrat/internal/models"
)

const (
	// WarmupBars is the history every recipe's trailing criteria needs
	// before its first evaluation. Symbols with too little history are
	// skipped upstream by the orchestrator, not here.
	WarmupBars = 200

	// winThreshold counts a trade as a win down to a -2% return: a small
	// assigned loss on a cash-secured put is still operationally
	// acceptable.
	winThreshold = -0.02
)

// Validate walks the history applying the recipe's criteria at each bar
// from the warmup index on, simulating a hold to horizonDays bars later.
// Zero-valued stats when no signal ever fired: absence of signal is
// meaningful, not an error.
func Validate(recipe Recipe, history []models.PriceBar, horizonDays int) models.BacktestResult {
	result := models.BacktestResult{
		Symbol:       recipe.Symbol,
		StrategyName: recipe.Name,
		HorizonDays:  horizonDays,
	}
	if horizonDays <= 0 {
		return result
	}

	var wins int
	var totalReturn float64
	for i := WarmupBars; i < len(history)-horizonDays; i++ {
		entry := history[i].Close
		if entry <= 0 || !recipe.Criteria(history[:i], entry) {
			continue
		}

		exit := history[i+horizonDays].Close
		ret := exit/entry - 1

		result.TotalTrades++
		totalReturn += ret
		if ret >= winThreshold {
			wins++
		}
		if ret < result.MaxDrawdown {
			result.MaxDrawdown = ret
		}
	}

	if result.TotalTrades > 0 {
		result.WinRate = float64(wins) / float64(result.TotalTrades)
		result.AvgReturn = totalReturn / float64(result.TotalTrades)
	}
	result.EfficiencyScore = result.WinRate * 100
	return result
}

// ValidateByVolBucket runs the same walk as Validate, additionally
// assigning each fired signal to the volatility regime of its date and
// accumulating per-bucket statistics. Signals whose date has no resolvable
// bucket are dropped from the bucketed view; the unbucketed Validate pass
// still counts them.
func ValidateByVolBucket(recipe Recipe, history []models.PriceBar, horizonDays int, volByDate map[string]float64, thresholds models.VolThresholds) map[models.VolBucket]models.BacktestResult {
	if horizonDays <= 0 {
		return nil
	}

	type acc struct {
		trades      int
		wins        int
		totalReturn float64
		maxDrawdown float64
	}
	buckets := make(map[models.VolBucket]*acc)

	for i := WarmupBars; i < len(history)-horizonDays; i++ {
		entry := history[i].Close
		if entry <= 0 || !recipe.Criteria(history[:i], entry) {
			continue
		}

		vol, ok := volByDate[history[i].Date]
		if !ok {
			continue
		}
		bucket, ok := volatility.ResolveBucket(vol, thresholds)
		if !ok {
			continue
		}

		exit := history[i+horizonDays].Close
		ret := exit/entry - 1

		a := buckets[bucket]
		if a == nil {
			a = &acc{}
			buckets[bucket] = a
		}
		a.trades++
		a.totalReturn += ret
		if ret >= winThreshold {
			a.wins++
		}
		if ret < a.maxDrawdown {
			a.maxDrawdown = ret
		}
	}

	results := make(map[models.VolBucket]models.BacktestResult, len(buckets))
	for bucket, a := range buckets {
		r := models.BacktestResult{
			Symbol:       recipe.Symbol,
			StrategyName: recipe.Name,
			HorizonDays:  horizonDays,
			Bucket:       bucket,
			TotalTrades:  a.trades,
			MaxDrawdown:  a.maxDrawdown,
		}
		if a.trades > 0 {
			r.WinRate = float64(a.wins) / float64(a.trades)
			r.AvgReturn = a.totalReturn / float64(a.trades)
		}
		r.EfficiencyScore = r.WinRate * 100
		results[bucket] = r
	}
	return results
}
