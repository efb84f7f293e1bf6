// Package patterns provides sliding-window similarity search over
// normalized price series and option premium richness grading.
package patterns

import (
	"errors"
	"sort"

	"wheelstrat/internal/models"
)

var (
	// ErrLengthMismatch is returned when two series that must be the same
	// length are not. This is a caller bug, never a data condition.
	ErrLengthMismatch = errors.New("series length mismatch")
	// ErrInvalidWindow is returned when the window size or topN is not positive.
	ErrInvalidWindow = errors.New("invalid window")
)

// Match is one historical window statistically similar to the current
// series. SubsequentRatio is the exit/entry price ratio over the windowSize
// bars following the match: historical fact attached to the match, left for
// the caller to aggregate into a signal.
type Match struct {
	StartIndex      int
	EndIndex        int
	StartDate       string
	EndDate         string
	Distance        float64
	SubsequentRatio float64
}

// NormalizePrices rebases a price series to cumulative percent-change from
// its first element. A series whose first element is 0 is already rebased
// and passes through unchanged, which makes the transform idempotent.
func NormalizePrices(prices []float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	normalized := make([]float64, len(prices))
	base := prices[0]
	if base == 0 {
		copy(normalized, prices)
		return normalized
	}
	for i, p := range prices {
		normalized[i] = (p - base) / base
	}
	return normalized
}

// EuclideanDistance computes the sum-of-squares distance between two
// equal-length normalized series.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var dist float64
	for i := range a {
		diff := a[i] - b[i]
		dist += diff * diff
	}
	return dist, nil
}

// FindDoppelgangers slides a window of windowSize bars across the history,
// normalizes each window, and ranks windows by distance to the normalized
// current series. The scan stops windowSize*2 bars before the end so every
// match has a full windowSize of subsequent bars to measure performance
// against. Returns the topN lowest-distance matches, ascending by distance.
func FindDoppelgangers(currentPrices []float64, historical []models.PriceBar, windowSize, topN int) ([]Match, error) {
	if windowSize <= 0 || topN <= 0 {
		return nil, ErrInvalidWindow
	}
	if len(currentPrices) != windowSize {
		return nil, ErrLengthMismatch
	}

	current := NormalizePrices(currentPrices)

	var matches []Match
	for start := 0; start+windowSize*2 <= len(historical); start++ {
		window := make([]float64, windowSize)
		for i := 0; i < windowSize; i++ {
			window[i] = historical[start+i].Close
		}

		dist, err := EuclideanDistance(current, NormalizePrices(window))
		if err != nil {
			return nil, err
		}

		end := start + windowSize - 1
		entry := historical[end].Close
		exit := historical[end+windowSize].Close
		ratio := 0.0
		if entry > 0 {
			ratio = exit / entry
		}

		matches = append(matches, Match{
			StartIndex:      start,
			EndIndex:        end,
			StartDate:       historical[start].Date,
			EndDate:         historical[end].Date,
			Distance:        dist,
			SubsequentRatio: ratio,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}
