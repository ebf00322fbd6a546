package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/ingest"
	"github.com/quantfolio/quantfolio/internal/pipeline"
	"github.com/quantfolio/quantfolio/internal/portfolio"
	"github.com/quantfolio/quantfolio/internal/regime"
	"github.com/quantfolio/quantfolio/internal/schema"
)

// evaluateOutput is the one-shot CLI payload: the report plus the optional
// extras requested by flags.
type evaluateOutput struct {
	*pipeline.Report
	Source     ingest.Source          `json:"source"`
	Breakdown  *breakdownOutput       `json:"breakdown,omitempty"`
	VIXHistory *regime.HistorySummary `json:"vix_history,omitempty"`
}

type breakdownOutput struct {
	Available bool                      `json:"available"`
	Reason    string                    `json:"reason,omitempty"`
	Matrix    portfolio.BreakdownMatrix `json:"matrix,omitempty"`
	Fallback  []schema.ScoreRecord      `json:"fallback,omitempty"`
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("json"); path != "" {
		cfg.Ingest.SnapshotJSON = path
	}
	if path, _ := cmd.Flags().GetString("csv"); path != "" {
		cfg.Ingest.SnapshotCSV = path
	}

	rows, source, err := ingest.LoadSnapshot(cfg.Ingest.SnapshotJSON, cfg.Ingest.SnapshotCSV)
	if err != nil {
		return err
	}

	vix, _ := cmd.Flags().GetFloat64("vix")
	engine := pipeline.New(cfg, nil)
	report := engine.Evaluate(rows, vix)

	out := evaluateOutput{Report: report, Source: source}

	if withBreakdown, _ := cmd.Flags().GetBool("breakdown"); withBreakdown {
		result := engine.Breakdown(report.Records)
		bd := &breakdownOutput{Available: result.Available, Reason: result.Reason, Matrix: result.Matrix}
		if !result.Available {
			bd.Fallback = portfolio.FallbackList(report.Records)
		}
		out.Breakdown = bd
	}

	if historyPath, _ := cmd.Flags().GetString("vix-history"); historyPath != "" {
		history, err := ingest.LoadVIXHistory(historyPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("path", historyPath).Msg("VIX history not found, skipping summary")
		case err != nil:
			return err
		default:
			summary := engine.Regime().SummarizeHistory(history)
			out.VIXHistory = &summary
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
