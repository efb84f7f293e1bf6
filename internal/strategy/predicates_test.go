package strategy

import (
	"testing"

	"wheelstrat/internal/models"
)

func flatBars(n int, close float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	for i := range bars {
		bars[i] = models.PriceBar{Close: close}
	}
	return bars
}

func TestPredicate_SMABand(t *testing.T) {
	history := flatBars(50, 100) // SMA is exactly 100
	params := PredicateParams{Period: 50, BandPct: 0.02}

	if !evaluate(PredicateSMABand, params, history, 101) {
		t.Error("price 1% off the SMA must fire a 2% band")
	}
	if !evaluate(PredicateSMABand, params, history, 102) {
		t.Error("price exactly at the band edge must fire")
	}
	if evaluate(PredicateSMABand, params, history, 103) {
		t.Error("price 3% off the SMA must not fire a 2% band")
	}
	if evaluate(PredicateSMABand, params, flatBars(10, 100), 100) {
		t.Error("insufficient history must not fire")
	}
}

func TestPredicate_BollingerBand(t *testing.T) {
	// Alternating 98/102 around a mean of 100 with stddev 2; a 2-sigma
	// lower band sits at 96.
	history := make([]models.PriceBar, 20)
	for i := range history {
		if i%2 == 0 {
			history[i].Close = 98
		} else {
			history[i].Close = 102
		}
	}
	params := PredicateParams{Period: 20, StdDevMul: 2}

	if !evaluate(PredicateBollingerBand, params, history, 95) {
		t.Error("price below the lower band must fire")
	}
	if !evaluate(PredicateBollingerBand, params, history, 96) {
		t.Error("price at the lower band must fire")
	}
	if evaluate(PredicateBollingerBand, params, history, 97) {
		t.Error("price above the lower band must not fire")
	}
}

func TestPredicate_RSIThreshold(t *testing.T) {
	// Monotone decline: RSI 0. Monotone rise: RSI 100.
	falling := make([]models.PriceBar, 14)
	rising := make([]models.PriceBar, 14)
	for i := range falling {
		falling[i].Close = 100 - float64(i)
		rising[i].Close = 100 + float64(i)
	}
	params := PredicateParams{Period: 14, Threshold: 30}

	if !evaluate(PredicateRSIThreshold, params, falling, 85) {
		t.Error("a monotone decline must read as oversold")
	}
	if evaluate(PredicateRSIThreshold, params, rising, 115) {
		t.Error("a monotone rise must not read as oversold")
	}
}

func TestPredicate_DrawdownFromHigh(t *testing.T) {
	history := flatBars(60, 100)
	history[30].Close = 120 // trailing high
	params := PredicateParams{Period: 60, Threshold: -0.10}

	if !evaluate(PredicateDrawdownFromHigh, params, history, 108) {
		t.Error("10% off the high must fire")
	}
	if evaluate(PredicateDrawdownFromHigh, params, history, 112) {
		t.Error("under 10% off the high must not fire")
	}
}

func TestPredicate_NDayReturn(t *testing.T) {
	history := flatBars(20, 100)
	params := PredicateParams{Days: 10, Threshold: -0.05}

	if !evaluate(PredicateNDayReturn, params, history, 94) {
		t.Error("a 6% ten-bar decline must fire")
	}
	if evaluate(PredicateNDayReturn, params, history, 96) {
		t.Error("a 4% ten-bar decline must not fire")
	}
	if evaluate(PredicateNDayReturn, params, flatBars(5, 100), 90) {
		t.Error("insufficient lookback must not fire")
	}
}

func TestPredicate_UnknownKindNeverFires(t *testing.T) {
	if evaluate(PredicateKind("MYSTERY"), PredicateParams{}, flatBars(300, 100), 100) {
		t.Error("unknown predicate kinds must never fire")
	}
}

func TestCatalog_EveryRecipeFitsWarmup(t *testing.T) {
	for _, r := range Catalog() {
		if r.Params.Period > WarmupBars {
			t.Errorf("%s: trailing period %d exceeds the warmup", r.Name, r.Params.Period)
		}
		if r.Params.Days > WarmupBars {
			t.Errorf("%s: lookback %d exceeds the warmup", r.Name, r.Params.Days)
		}
		if r.Symbol == "" || r.Name == "" {
			t.Errorf("recipe missing identity: %+v", r)
		}
		if r.Recommended != models.CashSecuredPut && r.Recommended != models.CoveredCall {
			t.Errorf("%s: unexpected strategy kind %s", r.Name, r.Recommended)
		}
	}
}

func TestCatalog_TrackedSymbolsCovered(t *testing.T) {
	for _, symbol := range TrackedSymbols() {
		if len(RecipesFor(symbol)) == 0 {
			t.Errorf("tracked symbol %s has no recipes", symbol)
		}
	}
	if RecipesFor("ZZZZ") != nil {
		t.Error("untracked symbols must return nil")
	}
}
