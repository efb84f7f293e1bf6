// Package tail detects rapid-drop events and post-drop rebounds in a bar
// series and summarizes event sets into aggregate statistics.
package tail

import (
	"sort"
	"time"

	"wheelstrat/internal/models"
)

// Config holds the tail scan tunables. DropPct is the drop magnitude
// threshold as a positive fraction (0.05 means a 5% decline).
type Config struct {
	DropPct              float64
	MaxDurationMinutes   float64
	ReboundWindowMinutes float64
	BarIntervalMinutes   float64
}

// DefaultConfig returns the tail scan defaults for daily bars.
func DefaultConfig() Config {
	return Config{
		DropPct:              0.05,
		MaxDurationMinutes:   5 * 1440,
		ReboundWindowMinutes: 10 * 1440,
		BarIntervalMinutes:   1440,
	}
}

// dateFormats covers the bar date shapes handed in by loaders: intraday
// bars carry full timestamps, daily bars carry date-only strings.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// FindRapidDrops scans bars for declines steeper than cfg.DropPct within
// cfg.MaxDurationMinutes. Events never overlap: after an event the cursor
// advances past the event's minimum, so a single decline is never counted
// twice. When no drop in a scan window meets the threshold the cursor
// advances one bar, the normal non-event path.
func FindRapidDrops(bars []models.PriceBar, cfg Config) []models.TailEvent {
	if len(bars) < 2 || cfg.DropPct <= 0 {
		return nil
	}

	offsets := barOffsets(bars, cfg.BarIntervalMinutes)

	var events []models.TailEvent
	i := 0
	for i < len(bars)-1 {
		if bars[i].Close <= 0 {
			i++
			continue
		}

		// Minimum close within the scan window of bar i.
		minIdx := -1
		minClose := bars[i].Close
		for j := i + 1; j < len(bars) && offsets[j]-offsets[i] <= cfg.MaxDurationMinutes; j++ {
			if bars[j].Close < minClose {
				minClose = bars[j].Close
				minIdx = j
			}
		}

		if minIdx < 0 {
			i++
			continue
		}

		drop := minClose/bars[i].Close - 1
		if drop > -cfg.DropPct {
			i++
			continue
		}

		event := models.TailEvent{
			StartIndex:      i,
			EndIndex:        minIdx,
			StartDate:       bars[i].Date,
			EndDate:         bars[minIdx].Date,
			DropPct:         drop,
			DurationMinutes: offsets[minIdx] - offsets[i],
		}

		if cfg.ReboundWindowMinutes > 0 {
			peak := minClose
			measured := false
			for k := minIdx + 1; k < len(bars) && offsets[k]-offsets[minIdx] <= cfg.ReboundWindowMinutes; k++ {
				measured = true
				if bars[k].Close > peak {
					peak = bars[k].Close
				}
			}
			if measured && minClose > 0 {
				event.ReboundPct = peak/minClose - 1
				event.ReboundWindowMinutes = cfg.ReboundWindowMinutes
				event.HasRebound = true
			}
		}

		events = append(events, event)
		i = minIdx + 1
	}

	return events
}

// Summarize aggregates a set of tail events. An empty input yields an
// all-zero summary. The median takes the lower-middle element of the sorted
// drops for even counts, without interpolation; persisted baselines were
// built against that definition.
func Summarize(events []models.TailEvent) models.TailEventSummary {
	if len(events) == 0 {
		return models.TailEventSummary{}
	}

	drops := make([]float64, len(events))
	var dropSum, worst float64
	worst = events[0].DropPct
	var rebounds int
	var reboundSum float64
	var measured int

	for i, e := range events {
		drops[i] = e.DropPct
		dropSum += e.DropPct
		if e.DropPct < worst {
			worst = e.DropPct
		}
		if e.HasRebound {
			measured++
			reboundSum += e.ReboundPct
			if e.ReboundPct > 0 {
				rebounds++
			}
		}
	}

	sort.Float64s(drops)

	summary := models.TailEventSummary{
		Occurrences:   len(events),
		AvgDropPct:    dropSum / float64(len(events)),
		MedianDropPct: drops[(len(drops)-1)/2],
		WorstDropPct:  worst,
		ReboundRate:   float64(rebounds) / float64(len(events)),
	}
	if measured > 0 {
		summary.AvgReboundPct = reboundSum / float64(measured)
	}
	return summary
}

// barOffsets returns each bar's offset in minutes from the first bar.
// Offsets come from parsed timestamps when every date parses; otherwise the
// median gap between the parseable neighbors stands in as a uniform
// interval, and failing that the configured interval.
func barOffsets(bars []models.PriceBar, intervalMinutes float64) []float64 {
	offsets := make([]float64, len(bars))

	times := make([]time.Time, len(bars))
	parsed := make([]bool, len(bars))
	allParsed := true
	for i, b := range bars {
		t, ok := parseBarDate(b.Date)
		times[i] = t
		parsed[i] = ok
		if !ok {
			allParsed = false
		}
	}

	if allParsed {
		for i := range bars {
			offsets[i] = times[i].Sub(times[0]).Minutes()
		}
		return offsets
	}

	interval := medianParsedGap(times, parsed)
	if interval <= 0 {
		interval = intervalMinutes
	}
	if interval <= 0 {
		interval = 1440
	}
	for i := range bars {
		offsets[i] = float64(i) * interval
	}
	return offsets
}

func parseBarDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func medianParsedGap(times []time.Time, parsed []bool) float64 {
	var gaps []float64
	for i := 1; i < len(times); i++ {
		if parsed[i] && parsed[i-1] {
			if gap := times[i].Sub(times[i-1]).Minutes(); gap > 0 {
				gaps = append(gaps, gap)
			}
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[(len(gaps)-1)/2]
}
