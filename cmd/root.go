package cmd

import (
	"os"
	"strings"

	"food-rescue-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// New builds the food-rescue command tree
func New() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "food-rescue",
		Short:         "Surplus food marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "path to the YAML config file")

	loadConfig := func() *config.Config {
		cfg, err := config.Load(configFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", configFile).Msg("Failed to load configuration")
		}
		setupLogger(cfg.Log)
		return cfg
	}

	cmd.AddCommand(
		newServeCommand(loadConfig),
		newMigrateCommand(loadConfig),
		newSweepCommand(loadConfig),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := New().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// setupLogger configures zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if strings.ToLower(cfg.Format) != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
