package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "pickengine"
	version = "v1.4.0"
)

var configPath string

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Confluence scoring, gating and tiering pipeline",
		Version: version,
		Long: `pickengine turns pre-scored betting candidates into a small set of
ranked, gated picks with an auditable score breakdown, persists them to
an append-only ledger, and feeds graded outcomes back into bounded
engine weight updates.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("PICKENGINE_CONFIG"),
		"path to YAML config (defaults apply when empty)")

	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newGradeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWeightsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
