package store

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/gocarina/gocsv"

	"wheelstrat/internal/models"
)

// csvBar is the CSV row shape accepted by ImportBarsCSV.
type csvBar struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// ImportBarsCSV loads bars from a CSV file into the store. Rows with
// non-finite or non-positive closes are dropped here so the engine never
// sees them; the count of imported bars is returned.
func ImportBarsCSV(ctx context.Context, ds DataStore, path, symbol, barSize string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return 0, fmt.Errorf("parse csv: %w", err)
	}

	bars := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		if !validClose(r.Close) {
			continue
		}
		bars = append(bars, models.PriceBar{
			Date:   r.Date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	if err := ds.SaveBars(ctx, symbol, barSize, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}

func validClose(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
