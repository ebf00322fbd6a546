package portfolio

import (
	"fmt"
	"sort"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// BreakdownMatrix is the wide form of the long-form component table: symbol →
// category → component value. The matrix is sparse; pairs absent from the
// input are absent here, not zero-filled.
type BreakdownMatrix map[string]map[string]float64

// BreakdownResult is the explicit outcome of a reshape attempt. The caller
// chooses the fallback path when Available is false; unavailability is a
// recoverable condition, never a fatal error.
type BreakdownResult struct {
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	Matrix    BreakdownMatrix `json:"matrix,omitempty"`
}

// BuildBreakdown reshapes long-form (symbol, category, score_component) rows
// into a symbol × category matrix. The reshape is unavailable when any row
// lacks the breakdown columns, or when duplicate (symbol, category) pairs
// carry conflicting values.
func BuildBreakdown(records []schema.ScoreRecord) BreakdownResult {
	matrix := make(BreakdownMatrix)

	for _, rec := range records {
		if rec.Category == "" || !rec.HasComponent {
			return BreakdownResult{
				Available: false,
				Reason:    fmt.Sprintf("%s: breakdown columns missing", rec.Symbol),
			}
		}

		row, ok := matrix[rec.Symbol]
		if !ok {
			row = make(map[string]float64)
			matrix[rec.Symbol] = row
		}

		if prev, dup := row[rec.Category]; dup && prev != rec.ScoreComponent {
			return BreakdownResult{
				Available: false,
				Reason: fmt.Sprintf("conflicting values for (%s, %s): %.4f vs %.4f",
					rec.Symbol, rec.Category, prev, rec.ScoreComponent),
			}
		}
		row[rec.Category] = rec.ScoreComponent
	}

	return BreakdownResult{Available: true, Matrix: matrix}
}

// Flatten returns the matrix as (symbol, category, value) triples, ordered by
// symbol then category. It is the inverse of BuildBreakdown for tables with
// unique pairs.
func (m BreakdownMatrix) Flatten() []schema.ScoreRecord {
	symbols := make([]string, 0, len(m))
	for sym := range m {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []schema.ScoreRecord
	for _, sym := range symbols {
		categories := make([]string, 0, len(m[sym]))
		for cat := range m[sym] {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		for _, cat := range categories {
			out = append(out, schema.ScoreRecord{
				Symbol:         sym,
				Category:       cat,
				ScoreComponent: m[sym][cat],
				HasComponent:   true,
				Verdict:        schema.DefaultVerdict,
			})
		}
	}
	return out
}

// FallbackList is the presentation order used when the breakdown is
// unavailable: the flat per-symbol list sorted ascending by score, ties kept
// in original input order.
func FallbackList(records []schema.ScoreRecord) []schema.ScoreRecord {
	out := make([]schema.ScoreRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})
	return out
}
