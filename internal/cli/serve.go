package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-edu-api/internal/app"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	srv, err := app.Open(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build server")
		return err
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	if err := srv.Bootstrap(ctx); err != nil {
		log.Error().Err(err).Msg("failed to seed access control")
		srv.Close()
		return err
	}
	return srv.Run(ctx)
}

func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
