// Package models provides domain models for the analysis engine.
package models

// OptionRight identifies a call or put.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// StrategyKind is the closed set of recommended option strategies.
type StrategyKind string

const (
	CashSecuredPut StrategyKind = "CASH_SECURED_PUT"
	CoveredCall    StrategyKind = "COVERED_CALL"
)

// VolBucket labels a volatility regime.
type VolBucket string

const (
	VolBucketLow  VolBucket = "LOW"
	VolBucketMid  VolBucket = "MID"
	VolBucketHigh VolBucket = "HIGH"
)

// PriceBar represents one OHLCV observation. Dates are caller-normalized
// strings (ISO-8601 or YYYYMMDD) and sequences are ascending with no
// duplicate dates for a given (symbol, bar size, adjustment) key.
type PriceBar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TailEvent represents one detected rapid decline in a bar sequence.
// ReboundPct and ReboundWindowMinutes are only meaningful when HasRebound
// is set, i.e. a post-drop rebound window was configured and measured.
type TailEvent struct {
	StartIndex           int
	EndIndex             int
	StartDate            string
	EndDate              string
	DropPct              float64
	DurationMinutes      float64
	ReboundPct           float64
	ReboundWindowMinutes float64
	HasRebound           bool
}

// TailEventSummary aggregates a set of tail events. All fields are zero
// for an empty event set.
type TailEventSummary struct {
	Occurrences   int
	AvgDropPct    float64
	MedianDropPct float64
	WorstDropPct  float64
	ReboundRate   float64
	AvgReboundPct float64
}

// VolThresholds holds percentile cutoffs over a realized-vol sample set.
// Invariant: LowMax <= MidMax. Constructed only when the sample count meets
// the minimum floor; callers treat absence as "bucketing unavailable".
type VolThresholds struct {
	LowMax     float64
	MidMax     float64
	Source     string
	WindowDays int
}

// SplitFactor is a multiplicative price adjustment effective on Date.
// Source is "detected" for ratio-jump detections; any other source is
// authoritative and takes precedence for the same date.
type SplitFactor struct {
	Symbol        string
	Date          string
	Factor        float64
	DetectedRatio float64
	Source        string
	Confidence    float64
}

// SourceDetected marks split factors produced by ratio-jump detection.
const SourceDetected = "detected"

// BacktestResult holds per (symbol, recipe, horizon) statistics, optionally
// conditioned on a volatility bucket.
type BacktestResult struct {
	Symbol          string
	StrategyName    string
	HorizonDays     int
	Bucket          VolBucket
	WinRate         float64
	TotalTrades     int
	AvgReturn       float64
	MaxDrawdown     float64
	EfficiencyScore float64
}

// AggregateStat is one persisted statistics row. The uniqueness key is
// (Symbol, Name, Kind, Horizon, Bucket, RTH, Adjusted, Source); writes are
// upserts since the same key is recomputed on every scheduled run.
type AggregateStat struct {
	Symbol   string
	Name     string
	Kind     string // "pattern", "tail", "backtest"
	Horizon  int
	Bucket   string // empty when unbucketed
	RTH      bool
	Adjusted bool
	Source   string
	Payload  string // JSON-encoded statistics
}

// Alert is the payload handed to the notification collaborator.
type Alert struct {
	Headline string
	Body     string
	Data     map[string]string
}
