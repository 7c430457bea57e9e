package cli

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-edu-api/internal/app"
)

func init() { //nolint: gochecknoinits
	seedCmd.Flags().StringVar(&seedEmail, "admin-email", "", "Email of the administrator to create (defaults to GEMA_SEED_ADMIN_EMAIL)")
	seedCmd.Flags().StringVar(&seedPassword, "admin-password", "", "Password of the administrator to create (defaults to GEMA_SEED_ADMIN_PASSWORD)")

	rootCmd.AddCommand(seedCmd)
}

var (
	seedEmail    string
	seedPassword string

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Seed the permission catalog, role defaults and the first administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			if seedEmail != "" {
				cfg.SeedAdminEmail = seedEmail
			}
			if seedPassword != "" {
				cfg.SeedAdminPassword = seedPassword
			}

			srv, err := app.Open(cfg, log)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := withSignals(cmd.Context())
			defer stop()

			if err := srv.Bootstrap(ctx); err != nil {
				log.Error().Err(err).Msg("seed failed")
				return err
			}
			log.Info().Msg("seed completed")
			return nil
		},
	}
)
