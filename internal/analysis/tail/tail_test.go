package tail

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"wheelstrat/internal/models"
)

func dailySeries(closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestFindRapidDrops_SingleEvent(t *testing.T) {
	// A 6% slide over two days, then a recovery the rebound window sees.
	bars := dailySeries([]float64{100, 98, 94, 96, 101, 101, 101, 101, 101, 101})

	events := FindRapidDrops(bars, DefaultConfig())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	e := events[0]
	if e.StartIndex != 0 || e.EndIndex != 2 {
		t.Errorf("event span = [%d, %d], want [0, 2]", e.StartIndex, e.EndIndex)
	}
	if math.Abs(e.DropPct-(-0.06)) > 1e-12 {
		t.Errorf("drop = %v, want -0.06", e.DropPct)
	}
	if e.DurationMinutes != 2*1440 {
		t.Errorf("duration = %v minutes, want %v", e.DurationMinutes, 2*1440)
	}
	if !e.HasRebound {
		t.Fatal("expected a measured rebound")
	}
	wantRebound := 101.0/94 - 1
	if math.Abs(e.ReboundPct-wantRebound) > 1e-12 {
		t.Errorf("rebound = %v, want %v", e.ReboundPct, wantRebound)
	}
}

func TestFindRapidDrops_BelowThresholdIgnored(t *testing.T) {
	// A 4% slide never crosses the 5% threshold.
	bars := dailySeries([]float64{100, 98, 96, 97, 98, 99})
	if events := FindRapidDrops(bars, DefaultConfig()); len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}

func TestFindRapidDrops_SlowDeclineOutsideWindow(t *testing.T) {
	// 10% over twenty days with no five-day stretch losing 5%.
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100 * math.Pow(0.995, float64(i))
	}
	bars := dailySeries(closes)
	if events := FindRapidDrops(bars, DefaultConfig()); len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}

func TestFindRapidDrops_CursorSkipsPastMinimum(t *testing.T) {
	// Two distinct crashes separated by a flat stretch longer than the scan
	// window; the scan must report both without double counting the first.
	closes := []float64{100, 90, 100, 100, 100, 100, 100, 100, 100, 90, 100}
	bars := dailySeries(closes)

	events := FindRapidDrops(bars, DefaultConfig())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EndIndex >= events[1].StartIndex {
		t.Errorf("events overlap: first ends %d, second starts %d", events[0].EndIndex, events[1].StartIndex)
	}
}

func TestFindRapidDrops_UnparseableDatesFallBack(t *testing.T) {
	bars := dailySeries([]float64{100, 94, 100, 100, 100, 100, 100, 100, 100, 100})
	for i := range bars {
		bars[i].Date = "not-a-date"
	}

	cfg := DefaultConfig()
	events := FindRapidDrops(bars, cfg)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 via the configured bar interval", len(events))
	}
	if events[0].DurationMinutes != cfg.BarIntervalMinutes {
		t.Errorf("duration = %v, want %v", events[0].DurationMinutes, cfg.BarIntervalMinutes)
	}
}

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil)
	if got != (models.TailEventSummary{}) {
		t.Errorf("empty summary = %+v, want zero value", got)
	}
}

func TestSummarize_MedianTakesLowerMiddle(t *testing.T) {
	events := []models.TailEvent{
		{DropPct: -0.05},
		{DropPct: -0.10},
		{DropPct: -0.06},
		{DropPct: -0.08},
	}

	got := Summarize(events)
	// Sorted ascending: -0.10, -0.08, -0.06, -0.05. Lower middle is -0.08.
	if got.MedianDropPct != -0.08 {
		t.Errorf("median = %v, want -0.08", got.MedianDropPct)
	}
	if got.WorstDropPct != -0.10 {
		t.Errorf("worst = %v, want -0.10", got.WorstDropPct)
	}
	if got.Occurrences != 4 {
		t.Errorf("occurrences = %d, want 4", got.Occurrences)
	}
}

func TestSummarize_ReboundRates(t *testing.T) {
	events := []models.TailEvent{
		{DropPct: -0.05, HasRebound: true, ReboundPct: 0.04},
		{DropPct: -0.07, HasRebound: true, ReboundPct: 0},
		{DropPct: -0.06},
	}

	got := Summarize(events)
	// Positive rebounds over all events, average over measured ones only.
	if math.Abs(got.ReboundRate-1.0/3) > 1e-12 {
		t.Errorf("rebound rate = %v, want 1/3", got.ReboundRate)
	}
	if math.Abs(got.AvgReboundPct-0.02) > 1e-12 {
		t.Errorf("avg rebound = %v, want 0.02", got.AvgReboundPct)
	}
}

// Property: every reported event clears the drop threshold and events never
// overlap, for arbitrary positive close series.
func TestProperty_TailEventInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("events clear the threshold and never overlap", prop.ForAll(
		func(closes []float64) bool {
			bars := dailySeries(closes)
			cfg := DefaultConfig()
			events := FindRapidDrops(bars, cfg)

			prevEnd := -1
			for _, e := range events {
				if e.DropPct > -cfg.DropPct {
					return false
				}
				if e.StartIndex <= prevEnd {
					return false
				}
				if e.EndIndex <= e.StartIndex {
					return false
				}
				prevEnd = e.EndIndex
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(10, 200)),
	))

	properties.TestingRun(t)
}
