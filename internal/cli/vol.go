package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wheelstrat/internal/analysis/volatility"
	"wheelstrat/internal/pipeline"
)

// newVolCmd creates the volatility regime command.
func newVolCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vol SYMBOL",
		Short: "Show realized volatility and the current regime bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]

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

			volCfg := app.Config.Engine.VolBucket
			series := volatility.BuildSeries(bars, volCfg.Period)
			if len(series) == 0 {
				fmt.Printf("Not enough history for %s (need %d+ bars)\n", symbol, volCfg.Period+1)
				return nil
			}

			latest := series[len(series)-1]
			fmt.Printf("%s realized vol (%d-bar): %.2f%% as of %s\n",
				symbol, volCfg.Period, latest.Vol*100, latest.Date)

			samples := make([]float64, len(series))
			for i, pt := range series {
				samples[i] = pt.Vol
			}
			thresholds, ok := volatility.BuildThresholds(samples, volatility.ThresholdConfig{
				WindowDays: volCfg.WindowDays,
				MinSamples: volCfg.MinSamples,
				LowPct:     volCfg.LowPct,
				HighPct:    volCfg.HighPct,
				Source:     "realized",
			})
			if !ok {
				fmt.Println("Bucketing unavailable: not enough realized-vol samples")
				return nil
			}

			fmt.Printf("thresholds: low ≤ %.2f%% < mid ≤ %.2f%% < high\n",
				thresholds.LowMax*100, thresholds.MidMax*100)
			if bucket, ok := volatility.ResolveBucket(latest.Vol, thresholds); ok {
				fmt.Printf("current regime: %s\n", bucket)
			}
			return nil
		},
	}
	return cmd
}
