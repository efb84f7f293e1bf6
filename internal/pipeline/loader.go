// Package pipeline orchestrates the analysis engine over a watchlist:
// loading bars, running the analysis components per symbol, persisting
// aggregate statistics, and conditionally emitting alerts.
package pipeline

import (
	"context"
	"math"

	"wheelstrat/internal/analysis/splits"
	"wheelstrat/internal/errors"
	"wheelstrat/internal/logging"
	"wheelstrat/internal/models"
	"wheelstrat/internal/store"
)

// SplitCache memoizes resolved split factors per symbol. It is owned by
// the orchestrator and threaded into loader calls so tests can inject a
// fresh cache per run. Process-local only: a performance optimization,
// never a correctness dependency.
type SplitCache struct {
	factors map[string][]models.SplitFactor
}

// NewSplitCache creates an empty split cache.
func NewSplitCache() *SplitCache {
	return &SplitCache{factors: make(map[string][]models.SplitFactor)}
}

func (c *SplitCache) get(symbol string) ([]models.SplitFactor, bool) {
	f, ok := c.factors[symbol]
	return f, ok
}

func (c *SplitCache) put(symbol string, factors []models.SplitFactor) {
	c.factors[symbol] = factors
}

// Invalidate drops the cached factors for a symbol. A fresh detection run
// is the only thing that invalidates the cache.
func (c *SplitCache) Invalidate(symbol string) {
	delete(c.factors, symbol)
}

// HistoryLoader loads split-adjusted bar histories for the engine.
type HistoryLoader struct {
	store   store.DataStore
	barSize string
}

// NewHistoryLoader creates a loader reading bars of the given size.
func NewHistoryLoader(ds store.DataStore, barSize string) *HistoryLoader {
	return &HistoryLoader{store: ds, barSize: barSize}
}

// Load returns the split-adjusted bar history for a symbol. It filters
// invalid closes, runs split detection, replaces the persisted detected
// records, resolves authoritative-over-detected precedence, and applies
// back-adjustment. Resolved factors go through the injected cache.
func (l *HistoryLoader) Load(ctx context.Context, cache *SplitCache, symbol string) ([]models.PriceBar, error) {
	raw, err := l.store.GetBars(ctx, symbol, l.barSize)
	if err != nil {
		return nil, errors.NewDataError("bars", symbol, "loading history", err)
	}

	bars := filterValidBars(raw)
	if len(bars) == 0 {
		return nil, nil
	}

	factors, ok := cache.get(symbol)
	if !ok {
		factors, err = l.resolveSplits(ctx, symbol, bars)
		if err != nil {
			return nil, err
		}
		cache.put(symbol, factors)
	}

	return splits.Apply(bars, factors), nil
}

// resolveSplits runs detection, fully replaces the persisted detected set,
// and merges with authoritative records.
func (l *HistoryLoader) resolveSplits(ctx context.Context, symbol string, bars []models.PriceBar) ([]models.SplitFactor, error) {
	detected := splits.Detect(symbol, bars)
	logging.LogSplitDetection(logging.FromContext(ctx), symbol, len(detected))
	if err := l.store.ReplaceDetectedSplits(ctx, symbol, detected); err != nil {
		return nil, errors.NewDataError("splits", symbol, "replacing detected records", err)
	}

	persisted, err := l.store.GetSplitFactors(ctx, symbol)
	if err != nil {
		return nil, errors.NewDataError("splits", symbol, "loading split factors", err)
	}

	var authoritative []models.SplitFactor
	for _, f := range persisted {
		if f.Source != models.SourceDetected {
			authoritative = append(authoritative, f)
		}
	}
	return splits.Merge(authoritative, detected), nil
}

// filterValidBars drops bars with non-finite or non-positive closes before
// the engine sees them.
func filterValidBars(bars []models.PriceBar) []models.PriceBar {
	valid := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 && !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0) {
			valid = append(valid, b)
		}
	}
	return valid
}
