package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wheelstrat/internal/analysis/pricing"
	"wheelstrat/internal/models"
)

// newPriceCmd creates the option pricing command. With --vol it prices the
// contract; with --premium it solves the implied volatility instead.
func newPriceCmd(app *App) *cobra.Command {
	var (
		spot    float64
		strike  float64
		dte     int
		rate    float64
		vol     float64
		premium float64
		delta   float64
		right   string
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price an option or solve its implied volatility",
		Long:  "Prices a European option with Black-Scholes, or inverts an observed premium into an implied volatility. Reports the annualized premium yield for short-side sizing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			r := models.OptionRight(strings.ToUpper(right))
			if r != models.Call && r != models.Put {
				return fmt.Errorf("--right must be C or P, got %q", right)
			}
			if dte <= 0 {
				return fmt.Errorf("--dte must be positive")
			}
			tte := float64(dte) / 365.0

			switch {
			case vol > 0:
				p, ok := pricing.Price(spot, strike, tte, rate, vol, r)
				if !ok {
					return fmt.Errorf("invalid market state: spot %v, strike %v", spot, strike)
				}
				fmt.Fprintf(out, "premium: %.4f\n", p)
				if yield, ok := pricing.AnnualizedYield(models.SomePremium(p), strike, dte); ok {
					fmt.Fprintf(out, "annualized yield: %.2f%%\n", yield*100)
				}
			case premium > 0:
				iv, ok := pricing.ImpliedVolFromPremium(spot, strike, tte, rate, premium, r)
				if !ok {
					fmt.Fprintf(out, "no volatility reproduces a %.4f premium for that contract\n", premium)
					return nil
				}
				fmt.Fprintf(out, "implied vol: %.2f%%\n", iv*100)
				if yield, ok := pricing.AnnualizedYield(models.SomePremium(premium), strike, dte); ok {
					fmt.Fprintf(out, "annualized yield: %.2f%%\n", yield*100)
				}
			default:
				return fmt.Errorf("provide --vol to price or --premium to solve implied volatility")
			}

			if delta != 0 {
				if winProb, ok := pricing.WinProbFromDelta(delta); ok {
					fmt.Fprintf(out, "win probability from delta: %.0f%%\n", winProb*100)
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&spot, "spot", 0, "underlying price")
	cmd.Flags().Float64Var(&strike, "strike", 0, "strike price")
	cmd.Flags().IntVar(&dte, "dte", 0, "days to expiry")
	cmd.Flags().Float64Var(&rate, "rate", 0.04, "risk-free rate")
	cmd.Flags().Float64Var(&vol, "vol", 0, "volatility to price at")
	cmd.Flags().Float64Var(&premium, "premium", 0, "observed premium to invert")
	cmd.Flags().Float64Var(&delta, "delta", 0, "option delta for the win probability estimate")
	cmd.Flags().StringVar(&right, "right", "P", "option right: C or P")
	return cmd
}
