package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/ingest"
	"github.com/quantfolio/quantfolio/internal/regime"
)

func runRegime(cmd *cobra.Command, args []string) error {
	reading, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("vix reading must be numeric, got %q", args[0])
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	evaluator := regime.NewEvaluator(cfg.Thresholds.CircuitBreakerVIX)

	out := map[string]interface{}{
		"vix":            reading,
		"threshold":      evaluator.Threshold(),
		"regime":         evaluator.Classify(reading),
		"advisory_range": cfg.Thresholds.VIXInputRange,
	}

	if historyPath, _ := cmd.Flags().GetString("history"); historyPath != "" {
		history, err := ingest.LoadVIXHistory(historyPath)
		if err != nil {
			return err
		}
		out["history"] = evaluator.SummarizeHistory(history)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
