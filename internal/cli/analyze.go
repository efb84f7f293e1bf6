package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wheelstrat/internal/analysis/patterns"
	"wheelstrat/internal/analysis/tail"
	"wheelstrat/internal/analysis/volatility"
	"wheelstrat/internal/pipeline"
)

// newAnalyzeCmd creates the single-symbol analysis command.
func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		impliedVol float64
		ivRank     float64
	)

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Run tail scan, pattern match, and premium grading for one symbol",
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
			if len(bars) == 0 {
				fmt.Printf("No history for %s\n", symbol)
				return nil
			}

			engCfg := app.Config.Engine

			// Tail events
			events := tail.FindRapidDrops(bars, tail.Config{
				DropPct:              engCfg.Tail.DropPct,
				MaxDurationMinutes:   engCfg.Tail.MaxDurationMinutes,
				ReboundWindowMinutes: engCfg.Tail.ReboundWindowMinutes,
				BarIntervalMinutes:   engCfg.Tail.BarIntervalMinutes,
			})
			summary := tail.Summarize(events)

			fmt.Printf("%s (%d bars)\n\n", symbol, len(bars))
			fmt.Println(headerText("Tail events"))
			fmt.Printf("  occurrences:  %d\n", summary.Occurrences)
			fmt.Printf("  avg drop:     %s\n", formatSignedPct(summary.AvgDropPct))
			fmt.Printf("  median drop:  %s\n", formatSignedPct(summary.MedianDropPct))
			fmt.Printf("  worst drop:   %s\n", formatSignedPct(summary.WorstDropPct))
			fmt.Printf("  rebound rate: %.0f%%\n", summary.ReboundRate*100)

			// Doppelgangers
			windowSize := engCfg.Pattern.WindowSize
			if len(bars) >= windowSize*3 {
				current := make([]float64, windowSize)
				for i, b := range bars[len(bars)-windowSize:] {
					current[i] = b.Close
				}
				matches, err := patterns.FindDoppelgangers(current, bars[:len(bars)-windowSize], windowSize, engCfg.Pattern.TopN)
				if err != nil {
					return err
				}
				fmt.Println()
				fmt.Println(headerText(fmt.Sprintf("Top doppelgangers (window %d)", windowSize)))
				for _, m := range matches {
					fmt.Printf("  %s → %s  dist=%.4f  next %d bars: %s\n",
						m.StartDate, m.EndDate, m.Distance, windowSize, formatSignedPct(m.SubsequentRatio-1))
				}
			}

			// Premium grade, when an implied vol was supplied
			if impliedVol > 0 {
				closes := make([]float64, len(bars))
				for i, b := range bars {
					closes[i] = b.Close
				}
				if rv, ok := volatility.RealizedVol(closes, engCfg.VolBucket.Period); ok {
					grade := patterns.ThetaGrade(impliedVol, rv, ivRank)
					fmt.Println()
					fmt.Println(headerText("Premium richness"))
					fmt.Printf("  IV %.2f / RV %.2f (rank %.0f) → grade %s\n",
						impliedVol, rv, ivRank, formatGrade(grade))
				}
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&impliedVol, "iv", 0, "current implied volatility for premium grading")
	cmd.Flags().Float64Var(&ivRank, "iv-rank", 0, "implied volatility percentile rank")
	return cmd
}
