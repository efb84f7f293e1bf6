package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wheelstrat/internal/narrative"
	"wheelstrat/internal/notify"
	"wheelstrat/internal/pipeline"
)

// newPipelineCmd creates the full pipeline run command.
func newPipelineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline operations",
	}
	cmd.AddCommand(newPipelineRunCmd(app))
	return cmd
}

func newPipelineRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis pipeline over the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			var notifier notify.Notifier
			if app.Config.Notifications.Enabled {
				notifier = notify.NewMultiNotifier(app.Config.Notifications)
			}
			writer := narrative.New(app.Config.Narrative)

			p := pipeline.New(app.Config, ds, notifier, writer, app.Logger)
			failures := p.Run(cmd.Context())
			if failures > 0 {
				return fmt.Errorf("%d symbol(s) failed", failures)
			}
			return nil
		},
	}
}
