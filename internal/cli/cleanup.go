package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-edu-api/internal/app"
)

func init() { //nolint: gochecknoinits
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Keep activity newer than this many days (defaults to GEMA_ACTIVITY_RETENTION_DAYS)")

	rootCmd.AddCommand(cleanupCmd)
}

var (
	cleanupDays int

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-activity",
		Short: "Delete activity log entries and login attempts older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			days := cleanupDays
			if days == 0 {
				days = cfg.ActivityRetentionDays
			}

			srv, err := app.Open(cfg, log)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := withSignals(cmd.Context())
			defer stop()

			result, err := srv.Activity.Cleanup(ctx, days)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d activity entries older than %s\n", result.Deleted, result.Cutoff.Format("2006-01-02"))

			attempts, err := srv.LoginGuard.Prune(ctx, days)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d login attempts\n", attempts)
			return nil
		},
	}
)
