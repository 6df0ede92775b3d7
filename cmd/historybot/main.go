package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/historybot/internal/config"
	"github.com/deusflow/historybot/internal/logger"
)

var (
	configPath string
	cfg        *config.Config
	log        *slog.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "historybot",
		Short: "Posts an \"on this day\" history event once a day",
		Long: "Fetches today's events from Wikipedia, picks one round-robin, turns linked " +
			"page names into hashtags and publishes the result to the configured channels.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			log = logger.Init(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $CONFIG_FILE)")

	root.AddCommand(
		serveCmd(),
		postCmd(),
		previewCmd(),
		historyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
