package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wheelstrat/internal/analysis/volatility"
	"wheelstrat/internal/models"
	"wheelstrat/internal/pipeline"
	"wheelstrat/internal/strategy"
)

// newBacktestCmd creates the single-symbol backtest command.
func newBacktestCmd(app *App) *cobra.Command {
	var (
		horizonDays int
		byBucket    bool
	)

	cmd := &cobra.Command{
		Use:   "backtest SYMBOL",
		Short: "Backtest the cataloged recipes for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]

			recipes := strategy.RecipesFor(symbol)
			if len(recipes) == 0 {
				fmt.Printf("No recipes cataloged for %s\n", symbol)
				return nil
			}

			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			loader := pipeline.NewHistoryLoader(ds, "1day")
			bars, err := loader.Load(cmd.Context(), pipeline.NewSplitCache(), symbol)
			if err != nil {
				return err
			}
			if horizonDays <= 0 {
				horizonDays = app.Config.Engine.Backtest.HorizonDays
			}
			if len(bars) < strategy.WarmupBars+horizonDays {
				fmt.Printf("Insufficient history for %s: %d bars\n", symbol, len(bars))
				return nil
			}

			for _, recipe := range recipes {
				result := strategy.Validate(recipe, bars, horizonDays)
				fmt.Printf("%s (%s, target delta %.2f)\n",
					headerText(recipe.Name), recipe.Recommended, recipe.TargetDelta)
				fmt.Printf("  %s\n", recipe.Description)
				printResult("  ", result)

				if byBucket {
					bucketed := bucketedResults(app, bars, recipe, horizonDays)
					for _, bucket := range []models.VolBucket{models.VolBucketLow, models.VolBucketMid, models.VolBucketHigh} {
						r, ok := bucketed[bucket]
						if !ok {
							continue
						}
						fmt.Printf("  [%s]\n", bucket)
						printResult("    ", r)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&horizonDays, "horizon", 0, "holding horizon in bars (default from config)")
	cmd.Flags().BoolVar(&byBucket, "by-vol-bucket", false, "also show per volatility-regime statistics")
	return cmd
}

func bucketedResults(app *App, bars []models.PriceBar, recipe strategy.Recipe, horizonDays int) map[models.VolBucket]models.BacktestResult {
	volCfg := app.Config.Engine.VolBucket
	series := volatility.BuildSeries(bars, volCfg.Period)

	volByDate := make(map[string]float64, len(series))
	samples := make([]float64, 0, len(series))
	for _, pt := range series {
		volByDate[pt.Date] = pt.Vol
		samples = append(samples, pt.Vol)
	}

	thresholds, ok := volatility.BuildThresholds(samples, volatility.ThresholdConfig{
		WindowDays: volCfg.WindowDays,
		MinSamples: volCfg.MinSamples,
		LowPct:     volCfg.LowPct,
		HighPct:    volCfg.HighPct,
		Source:     "realized",
	})
	if !ok {
		return nil
	}
	return strategy.ValidateByVolBucket(recipe, bars, horizonDays, volByDate, thresholds)
}

func printResult(indent string, r models.BacktestResult) {
	if r.TotalTrades == 0 {
		fmt.Printf("%sno signals fired\n", indent)
		return
	}
	fmt.Printf("%strades: %d  win rate: %s  avg return: %s  max drawdown: %s\n",
		indent, r.TotalTrades,
		formatWinRate(r.WinRate),
		formatSignedPct(r.AvgReturn),
		formatSignedPct(r.MaxDrawdown))
}
