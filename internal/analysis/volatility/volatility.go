// Package volatility provides realized-volatility computation and
// volatility-regime bucketing from percentile thresholds.
package volatility

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"wheelstrat/internal/models"
)

// tradingDaysPerYear is the annualization base for daily log returns.
const tradingDaysPerYear = 252

// ThresholdConfig holds bucket threshold tunables. Percentiles are in
// [0, 100].
type ThresholdConfig struct {
	WindowDays int
	MinSamples int
	LowPct     float64
	HighPct    float64
	Source     string
}

// DefaultThresholdConfig returns the 33rd/66th percentile split.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		WindowDays: 252,
		MinSamples: 30,
		LowPct:     33,
		HighPct:    66,
		Source:     "realized",
	}
}

// Point is a realized-vol observation keyed by bar date.
type Point struct {
	Date string
	Vol  float64
}

// RealizedVol computes the annualized standard deviation of log returns
// over the trailing period observations. Returns false when fewer than
// period+1 closes are available: insufficient sample, not zero volatility.
func RealizedVol(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	returns := make([]float64, 0, period)
	for i := len(closes) - period; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, false
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	sd := stat.PopStdDev(returns, nil)
	return sd * math.Sqrt(tradingDaysPerYear), true
}

// BuildSeries produces a realized-vol value for every bar with enough
// trailing history, keyed by the bar's date. The series feeds the
// percentile-based bucket thresholds.
func BuildSeries(bars []models.PriceBar, period int) []Point {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	var series []Point
	for i := period; i < len(bars); i++ {
		if vol, ok := RealizedVol(closes[:i+1], period); ok {
			series = append(series, Point{Date: bars[i].Date, Vol: vol})
		}
	}
	return series
}

// BuildThresholds splits a realized-vol sample set at the configured low
// and high percentiles. Requires at least max(5, MinSamples) observations;
// below that no thresholds are produced and callers must treat bucketing as
// unavailable rather than guessing a split.
func BuildThresholds(samples []float64, cfg ThresholdConfig) (models.VolThresholds, bool) {
	floor := cfg.MinSamples
	if floor < 5 {
		floor = 5
	}
	if len(samples) < floor {
		return models.VolThresholds{}, false
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	lowMax := stat.Quantile(cfg.LowPct/100, stat.Empirical, sorted, nil)
	midMax := stat.Quantile(cfg.HighPct/100, stat.Empirical, sorted, nil)
	if midMax < lowMax {
		midMax = lowMax
	}

	return models.VolThresholds{
		LowMax:     lowMax,
		MidMax:     midMax,
		Source:     cfg.Source,
		WindowDays: cfg.WindowDays,
	}, true
}

// ResolveBucket maps a realized-vol value onto a regime bucket. Non-finite
// input resolves to no bucket, never to a default.
func ResolveBucket(value float64, thresholds models.VolThresholds) (models.VolBucket, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", false
	}
	switch {
	case value <= thresholds.LowMax:
		return models.VolBucketLow, true
	case value <= thresholds.MidMax:
		return models.VolBucketMid, true
	default:
		return models.VolBucketHigh, true
	}
}
