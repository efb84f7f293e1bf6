package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wheelstrat/internal/store"
)

// newImportCmd creates the bar import command.
func newImportCmd(app *App) *cobra.Command {
	var barSize string

	cmd := &cobra.Command{
		Use:   "import SYMBOL FILE",
		Short: "Import OHLCV bars from a CSV file",
		Long:  "Imports bars from a CSV with columns date,open,high,low,close,volume. Rows with invalid closes are dropped.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, path := args[0], args[1]

			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			count, err := store.ImportBarsCSV(cmd.Context(), ds, path, symbol, barSize)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}

			app.Logger.Info().
				Str("symbol", symbol).
				Str("bar_size", barSize).
				Int("bars", count).
				Msg("Import complete")
			fmt.Printf("Imported %d bars for %s (%s)\n", count, symbol, barSize)
			return nil
		},
	}

	cmd.Flags().StringVar(&barSize, "bar-size", "1day", "bar size of the imported data")
	return cmd
}
