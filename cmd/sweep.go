package cmd

import (
	"context"

	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newSweepCommand runs one expiry pass, for cron-style deployments
func newSweepCommand(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire available listings past their expiry time once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sweeper := services.NewExpirySweeper(st.listings, cfg.Marketplace.SweepInterval, cfg.Marketplace.SweepRetryInterval)
			n, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			log.Info().Int64("expired", n).Msg("Sweep finished")
			return nil
		},
	}
}
