package cmd

import (
	"fmt"

	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand(loadConfig func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := loadConfig()
				return database.Up(cfg.Database.MigrateURL())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := loadConfig()
				return database.Down(cfg.Database.MigrateURL())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := loadConfig()
				version, dirty, err := database.Version(cfg.Database.MigrateURL())
				if err != nil {
					return err
				}
				log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
				fmt.Fprintf(cmd.OutOrStdout(), "%d dirty=%t\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}
