// Package cli implements the command line entrypoints of the API binary.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-edu-api/internal/config"
	"github.com/noah-isme/gema-edu-api/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "gema-api",
	Short: "GEMA education platform API",
	Long: `GEMA education platform API serves authentication, administration and
course endpoints behind a permission checked, audited request gate.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadRuntime() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	log, err := logger.New(cfg.Log, cfg.AppName)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, log, nil
}
