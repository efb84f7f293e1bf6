package strategy

import (
	"wheelstrat/internal/models"
)

// Recipe is a named, hand-curated rule for one symbol: a predicate over a
// price-history prefix and a current price, tagged with the option strategy
// to run when it fires. Recipes are configuration data, reproduced verbatim
// per symbol, not discovered.
type Recipe struct {
	Symbol      string
	Name        string
	Description string
	Kind        PredicateKind
	Params      PredicateParams
	Recommended models.StrategyKind
	TargetDelta float64
}

// Criteria evaluates the recipe's rule. History is the prefix strictly
// before the evaluation bar; price is that bar's close.
func (r Recipe) Criteria(history []models.PriceBar, price float64) bool {
	return evaluate(r.Kind, r.Params, history, price)
}

// catalog maps each tracked symbol to its recipes. Every recipe's trailing
// window fits inside the 200-bar warmup the backtest engine enforces.
var catalog = map[string][]Recipe{
	"SPY": {
		{
			Symbol:      "SPY",
			Name:        "spy-200sma-band",
			Description: "Within 2% of the 200-bar SMA",
			Kind:        PredicateSMABand,
			Params:      PredicateParams{Period: 200, BandPct: 0.02},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.20,
		},
		{
			Symbol:      "SPY",
			Name:        "spy-5pct-pullback",
			Description: "Down 5% or more over 10 bars",
			Kind:        PredicateNDayReturn,
			Params:      PredicateParams{Days: 10, Threshold: -0.05},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.25,
		},
	},
	"QQQ": {
		{
			Symbol:      "QQQ",
			Name:        "qqq-rsi-oversold",
			Description: "14-bar RSI at or below 30",
			Kind:        PredicateRSIThreshold,
			Params:      PredicateParams{Period: 14, Threshold: 30},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.25,
		},
		{
			Symbol:      "QQQ",
			Name:        "qqq-lower-bollinger",
			Description: "Close at or below the 20-bar lower Bollinger band",
			Kind:        PredicateBollingerBand,
			Params:      PredicateParams{Period: 20, StdDevMul: 2},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.20,
		},
	},
	"AAPL": {
		{
			Symbol:      "AAPL",
			Name:        "aapl-10pct-drawdown",
			Description: "Down 10% or more from the 60-bar high",
			Kind:        PredicateDrawdownFromHigh,
			Params:      PredicateParams{Period: 60, Threshold: -0.10},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.30,
		},
		{
			Symbol:      "AAPL",
			Name:        "aapl-50sma-band",
			Description: "Within 1.5% of the 50-bar SMA",
			Kind:        PredicateSMABand,
			Params:      PredicateParams{Period: 50, BandPct: 0.015},
			Recommended: models.CoveredCall,
			TargetDelta: 0.20,
		},
	},
	"MSFT": {
		{
			Symbol:      "MSFT",
			Name:        "msft-rsi-oversold",
			Description: "14-bar RSI at or below 35",
			Kind:        PredicateRSIThreshold,
			Params:      PredicateParams{Period: 14, Threshold: 35},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.25,
		},
	},
	"NVDA": {
		{
			Symbol:      "NVDA",
			Name:        "nvda-15pct-drawdown",
			Description: "Down 15% or more from the 60-bar high",
			Kind:        PredicateDrawdownFromHigh,
			Params:      PredicateParams{Period: 60, Threshold: -0.15},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.30,
		},
		{
			Symbol:      "NVDA",
			Name:        "nvda-7pct-pullback",
			Description: "Down 7% or more over 5 bars",
			Kind:        PredicateNDayReturn,
			Params:      PredicateParams{Days: 5, Threshold: -0.07},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.25,
		},
		{
			Symbol:      "NVDA",
			Name:        "nvda-lower-bollinger",
			Description: "Close at or below the 20-bar lower Bollinger band",
			Kind:        PredicateBollingerBand,
			Params:      PredicateParams{Period: 20, StdDevMul: 2},
			Recommended: models.CoveredCall,
			TargetDelta: 0.20,
		},
	},
	"TSLA": {
		{
			Symbol:      "TSLA",
			Name:        "tsla-20pct-drawdown",
			Description: "Down 20% or more from the 60-bar high",
			Kind:        PredicateDrawdownFromHigh,
			Params:      PredicateParams{Period: 60, Threshold: -0.20},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.30,
		},
	},
	"AMD": {
		{
			Symbol:      "AMD",
			Name:        "amd-rsi-oversold",
			Description: "14-bar RSI at or below 30",
			Kind:        PredicateRSIThreshold,
			Params:      PredicateParams{Period: 14, Threshold: 30},
			Recommended: models.CashSecuredPut,
			TargetDelta: 0.30,
		},
		{
			Symbol:      "AMD",
			Name:        "amd-100sma-band",
			Description: "Within 3% of the 100-bar SMA",
			Kind:        PredicateSMABand,
			Params:      PredicateParams{Period: 100, BandPct: 0.03},
			Recommended: models.CoveredCall,
			TargetDelta: 0.25,
		},
	},
}

// Catalog returns every recipe across all tracked symbols.
func Catalog() []Recipe {
	var all []Recipe
	for _, symbol := range TrackedSymbols() {
		all = append(all, catalog[symbol]...)
	}
	return all
}

// RecipesFor returns the recipes for one symbol, nil when untracked.
func RecipesFor(symbol string) []Recipe {
	return catalog[symbol]
}

// TrackedSymbols returns the cataloged symbols in stable order.
func TrackedSymbols() []string {
	return []string{"SPY", "QQQ", "AAPL", "MSFT", "NVDA", "TSLA", "AMD"}
}
