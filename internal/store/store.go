// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"wheelstrat/internal/models"
)

// DataStore defines the interface for data persistence. The analysis
// engine never touches storage directly; the pipeline loads bars and split
// factors through this interface and writes aggregates back through it.
type DataStore interface {
	// Price bars
	SaveBars(ctx context.Context, symbol, barSize string, bars []models.PriceBar) error
	GetBars(ctx context.Context, symbol, barSize string) ([]models.PriceBar, error)

	// Split factors. Detected records are fully replaced on every
	// detection run; authoritative records are upserted individually.
	ReplaceDetectedSplits(ctx context.Context, symbol string, factors []models.SplitFactor) error
	SaveSplitFactor(ctx context.Context, factor models.SplitFactor) error
	GetSplitFactors(ctx context.Context, symbol string) ([]models.SplitFactor, error)

	// Aggregate statistics, upserted on the composite key.
	UpsertAggregateStat(ctx context.Context, stat models.AggregateStat) error
	GetAggregateStats(ctx context.Context, symbol string) ([]models.AggregateStat, error)

	// Alert cooldown bookkeeping.
	LastAlertAt(ctx context.Context, symbol, pattern string) (time.Time, bool, error)
	MarkAlertSent(ctx context.Context, symbol, pattern string, at time.Time) error

	Close() error
}
