package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wheelstrat/internal/analysis/patterns"
	"wheelstrat/internal/analysis/tail"
	"wheelstrat/internal/analysis/volatility"
	"wheelstrat/internal/config"
	"wheelstrat/internal/errors"
	"wheelstrat/internal/logging"
	"wheelstrat/internal/models"
	"wheelstrat/internal/narrative"
	"wheelstrat/internal/notify"
	"wheelstrat/internal/store"
	"wheelstrat/internal/strategy"
)

const (
	// minHistoryBars is the floor below which a symbol is skipped
	// entirely: the 200-bar warmup plus enough room for a meaningful
	// backtest walk.
	minHistoryBars = 260

	dailyBarSize = "1day"
	statSource   = "pipeline"
)

// Pipeline runs the analysis engine over a watchlist and persists the
// results. Symbols are processed sequentially to bound load on the store;
// each symbol's failure is isolated, logged, and skipped.
type Pipeline struct {
	cfg      *config.Config
	store    store.DataStore
	loader   *HistoryLoader
	cache    *SplitCache
	notifier notify.Notifier
	writer   narrative.Writer
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a pipeline. The split cache is owned here and handed to the
// loader on every call.
func New(cfg *config.Config, ds store.DataStore, notifier notify.Notifier, writer narrative.Writer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    ds,
		loader:   NewHistoryLoader(ds, dailyBarSize),
		cache:    NewSplitCache(),
		notifier: notifier,
		writer:   writer,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes every watchlist symbol. A failing symbol never aborts the
// batch; the error count is returned for the caller's exit status.
func (p *Pipeline) Run(ctx context.Context) int {
	failures := 0
	for _, symbol := range p.cfg.Watchlist {
		logger := logging.WithSymbol(p.logger, symbol)
		if err := p.processSymbol(ctx, symbol, logger); err != nil {
			failures++
			logger.Error().Err(err).Msg("Symbol processing failed")
			continue
		}
	}
	p.logger.Info().
		Int("symbols", len(p.cfg.Watchlist)).
		Int("failures", failures).
		Msg("Pipeline run complete")
	return failures
}

// processSymbol runs components over one symbol's history. No partial
// state is persisted on error: every write happens after its computation
// succeeds, and a failure stops this symbol only.
func (p *Pipeline) processSymbol(ctx context.Context, symbol string, logger zerolog.Logger) error {
	ctx = logging.WithLogger(ctx, logger)

	bars, err := p.loader.Load(ctx, p.cache, symbol)
	if err != nil {
		return errors.NewPipelineError("load", symbol, err)
	}
	if len(bars) < minHistoryBars {
		logger.Debug().Int("bars", len(bars)).Msg("Insufficient history, skipping")
		return nil
	}

	// Volatility regime, when enough samples exist. Absent thresholds
	// mean every bucketed view below is skipped, never guessed.
	volCfg := p.cfg.Engine.VolBucket
	series := volatility.BuildSeries(bars, volCfg.Period)
	volByDate := make(map[string]float64, len(series))
	samples := make([]float64, 0, len(series))
	for _, pt := range series {
		volByDate[pt.Date] = pt.Vol
		samples = append(samples, pt.Vol)
	}
	thresholds, haveThresholds := volatility.BuildThresholds(samples, volatility.ThresholdConfig{
		WindowDays: volCfg.WindowDays,
		MinSamples: volCfg.MinSamples,
		LowPct:     volCfg.LowPct,
		HighPct:    volCfg.HighPct,
		Source:     "realized",
	})

	if err := p.runTail(ctx, symbol, bars, volByDate, thresholds, haveThresholds, logger); err != nil {
		return errors.NewPipelineError("tail", symbol, err)
	}
	if err := p.runPatterns(ctx, symbol, bars, logger); err != nil {
		return errors.NewPipelineError("patterns", symbol, err)
	}
	if err := p.runBacktests(ctx, symbol, bars, volByDate, thresholds, haveThresholds, logger); err != nil {
		return errors.NewPipelineError("backtest", symbol, err)
	}
	return nil
}

// runTail scans for rapid drops, persists the unbucketed summary, and when
// thresholds exist, per-bucket summaries keyed by each event's start date.
func (p *Pipeline) runTail(ctx context.Context, symbol string, bars []models.PriceBar, volByDate map[string]float64, thresholds models.VolThresholds, haveThresholds bool, logger zerolog.Logger) error {
	tailCfg := tail.Config{
		DropPct:              p.cfg.Engine.Tail.DropPct,
		MaxDurationMinutes:   p.cfg.Engine.Tail.MaxDurationMinutes,
		ReboundWindowMinutes: p.cfg.Engine.Tail.ReboundWindowMinutes,
		BarIntervalMinutes:   p.cfg.Engine.Tail.BarIntervalMinutes,
	}

	events := tail.FindRapidDrops(bars, tailCfg)
	summary := tail.Summarize(events)
	logging.LogTailSummary(logger, symbol, summary.Occurrences, summary.AvgDropPct, summary.ReboundRate)

	if err := p.persistStat(ctx, symbol, "rapid-drop", "tail", 0, "", summary); err != nil {
		return err
	}

	if !haveThresholds {
		return nil
	}
	byBucket := make(map[models.VolBucket][]models.TailEvent)
	for _, e := range events {
		vol, ok := volByDate[e.StartDate]
		if !ok {
			continue
		}
		bucket, ok := volatility.ResolveBucket(vol, thresholds)
		if !ok {
			continue
		}
		byBucket[bucket] = append(byBucket[bucket], e)
	}
	for bucket, bucketEvents := range byBucket {
		if err := p.persistStat(ctx, symbol, "rapid-drop", "tail", 0, string(bucket), tail.Summarize(bucketEvents)); err != nil {
			return err
		}
	}
	return nil
}

// patternStats is the persisted aggregate of a doppelganger search.
type patternStats struct {
	Matches            int     `json:"matches"`
	AvgDistance        float64 `json:"avg_distance"`
	AvgSubsequentRatio float64 `json:"avg_subsequent_ratio"`
	UpShare            float64 `json:"up_share"`
}

// runPatterns matches the latest window against history and persists the
// aggregate of the top matches.
func (p *Pipeline) runPatterns(ctx context.Context, symbol string, bars []models.PriceBar, logger zerolog.Logger) error {
	windowSize := p.cfg.Engine.Pattern.WindowSize
	if len(bars) < windowSize*3 {
		return nil
	}

	current := make([]float64, windowSize)
	for i, b := range bars[len(bars)-windowSize:] {
		current[i] = b.Close
	}

	matches, err := patterns.FindDoppelgangers(current, bars[:len(bars)-windowSize], windowSize, p.cfg.Engine.Pattern.TopN)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	var stats patternStats
	stats.Matches = len(matches)
	ups := 0
	for _, m := range matches {
		stats.AvgDistance += m.Distance
		stats.AvgSubsequentRatio += m.SubsequentRatio
		if m.SubsequentRatio > 1 {
			ups++
		}
	}
	stats.AvgDistance /= float64(len(matches))
	stats.AvgSubsequentRatio /= float64(len(matches))
	stats.UpShare = float64(ups) / float64(len(matches))

	logger.Debug().
		Int("matches", stats.Matches).
		Float64("avg_subsequent_ratio", stats.AvgSubsequentRatio).
		Msg("Doppelganger search complete")

	return p.persistStat(ctx, symbol, fmt.Sprintf("doppelganger-%d", windowSize), "pattern", 0, "", stats)
}

// runBacktests validates every cataloged recipe for the symbol, persists
// unbucketed and bucketed results, and emits alerts for recipes that pass
// the alert gate and fire on the latest bar.
func (p *Pipeline) runBacktests(ctx context.Context, symbol string, bars []models.PriceBar, volByDate map[string]float64, thresholds models.VolThresholds, haveThresholds bool, logger zerolog.Logger) error {
	horizon := p.cfg.Engine.Backtest.HorizonDays
	tailSummary := tail.Summarize(tail.FindRapidDrops(bars, tail.Config{
		DropPct:              p.cfg.Engine.Tail.DropPct,
		MaxDurationMinutes:   p.cfg.Engine.Tail.MaxDurationMinutes,
		ReboundWindowMinutes: p.cfg.Engine.Tail.ReboundWindowMinutes,
		BarIntervalMinutes:   p.cfg.Engine.Tail.BarIntervalMinutes,
	}))

	for _, recipe := range strategy.RecipesFor(symbol) {
		result := strategy.Validate(recipe, bars, horizon)
		logging.LogBacktest(logger, symbol, recipe.Name, result.TotalTrades, result.WinRate, result.AvgReturn)

		if err := p.persistStat(ctx, symbol, recipe.Name, "backtest", horizon, "", result); err != nil {
			return err
		}

		if haveThresholds {
			for bucket, bucketResult := range strategy.ValidateByVolBucket(recipe, bars, horizon, volByDate, thresholds) {
				if err := p.persistStat(ctx, symbol, recipe.Name, "backtest", horizon, string(bucket), bucketResult); err != nil {
					return err
				}
			}
		}

		p.maybeAlert(ctx, recipe, bars, result, tailSummary, logger)
	}
	return nil
}

// maybeAlert emits an alert when the recipe's statistics pass the gate and
// its criteria fires on the latest bar. Alert failures are logged, never
// propagated: alerting is best-effort on top of persisted statistics.
func (p *Pipeline) maybeAlert(ctx context.Context, recipe strategy.Recipe, bars []models.PriceBar, result models.BacktestResult, tailSummary models.TailEventSummary, logger zerolog.Logger) {
	alertCfg := p.cfg.Alerts
	if !alertCfg.Enabled || p.notifier == nil {
		return
	}
	if result.TotalTrades < alertCfg.MinTrades || result.WinRate < alertCfg.MinWinRate {
		return
	}

	last := bars[len(bars)-1]
	if !recipe.Criteria(bars[:len(bars)-1], last.Close) {
		return
	}

	cooldown := time.Duration(alertCfg.CooldownMinutes) * time.Minute
	sentAt, seen, err := p.store.LastAlertAt(ctx, recipe.Symbol, recipe.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("Alert cooldown lookup failed")
		return
	}
	if seen && p.now().Sub(sentAt) < cooldown {
		logger.Debug().Str("pattern", recipe.Name).Msg("Alert suppressed by cooldown")
		return
	}

	alert := models.Alert{
		Headline: fmt.Sprintf("%s: %s signal (%.0f%% win rate)", recipe.Symbol, recipe.Name, result.WinRate*100),
		Body:     p.writer.Commentary(ctx, result, tailSummary),
		Data: map[string]string{
			"symbol":       recipe.Symbol,
			"strategy":     string(recipe.Recommended),
			"target_delta": fmt.Sprintf("%.2f", recipe.TargetDelta),
			"win_rate":     fmt.Sprintf("%.4f", result.WinRate),
			"trades":       fmt.Sprintf("%d", result.TotalTrades),
		},
	}

	if err := p.notifier.Send(ctx, alert); err != nil {
		if !errors.Is(err, errors.ErrNotifyDisabled) {
			logger.Warn().Err(err).Msg("Alert delivery failed")
		}
		return
	}
	if err := p.store.MarkAlertSent(ctx, recipe.Symbol, recipe.Name, p.now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to record alert timestamp")
		return
	}
	logging.LogAlert(logger, recipe.Symbol, recipe.Name, alert.Headline)
}

// persistStat JSON-encodes a payload and upserts it on the composite key.
func (p *Pipeline) persistStat(ctx context.Context, symbol, name, kind string, horizon int, bucket string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return p.store.UpsertAggregateStat(ctx, models.AggregateStat{
		Symbol:   symbol,
		Name:     name,
		Kind:     kind,
		Horizon:  horizon,
		Bucket:   bucket,
		RTH:      true,
		Adjusted: true,
		Source:   statSource,
		Payload:  string(encoded),
	})
}
