// Package cli provides the command-line interface for the analysis
// pipeline.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wheelstrat/internal/config"
	"wheelstrat/internal/logging"
	"wheelstrat/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// OpenStore opens the configured SQLite store.
func (a *App) OpenStore() (store.DataStore, error) {
	ds, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", a.Config.Store.Path, err)
	}
	return ds, nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var debug bool

	rootCmd := &cobra.Command{
		Use:     "wheelstrat",
		Short:   "Quantitative analysis engine for option-selling strategies",
		Long:    "wheelstrat detects statistical patterns in historical price series, backtests rule-based option-selling strategies, and surfaces opportunities.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logging.SetDebugLevel()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newImportCmd(app),
		newAnalyzeCmd(app),
		newBacktestCmd(app),
		newVolCmd(app),
		newPriceCmd(app),
		newPipelineCmd(app),
	)

	return rootCmd
}
