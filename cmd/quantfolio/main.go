package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "quantfolio"
	version = "v1.2.0"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Portfolio scoring and alerting engine",
		Version: version,
		Long: `Quantfolio evaluates a portfolio scoring snapshot into alerts, sector
aggregates and a volatility circuit-breaker regime, and serves the results
to dashboard clients.`,
	}
	addConfigFlag(rootCmd.PersistentFlags())

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation pass over a snapshot",
		Long:  "Load the scoring snapshot (JSON preferred, CSV fallback), compute alerts and aggregates, and print the report as JSON.",
		RunE:  runEvaluate,
	}
	addEvaluateFlags(evaluateCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long:  "Expose evaluation results over HTTP and websocket, with optional scheduled refresh, report cache and alert audit store.",
		RunE:  runServe,
	}

	regimeCmd := &cobra.Command{
		Use:   "regime [vix]",
		Short: "Classify a volatility reading",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegime,
	}
	regimeCmd.Flags().String("history", "", "VIX history CSV to summarize alongside the reading")

	rootCmd.AddCommand(evaluateCmd, serveCmd, regimeCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func addConfigFlag(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to YAML configuration (defaults apply when omitted)")
}

func addEvaluateFlags(fs *pflag.FlagSet) {
	fs.String("json", "", "Override JSON snapshot path")
	fs.String("csv", "", "Override CSV fallback path")
	fs.Float64("vix", 0, "Current volatility-index reading")
	fs.Bool("breakdown", false, "Include the component breakdown (or its fallback list)")
	fs.String("vix-history", "", "Summarize a VIX history CSV in the output")
}
