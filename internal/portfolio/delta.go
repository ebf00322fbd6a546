package portfolio

import "github.com/quantfolio/quantfolio/internal/schema"

// ComputeDeltas derives score_change = score - prev_score for every record,
// overwriting whatever the raw input supplied. Raw score_change values are
// never trusted; the field only exists as a derivation.
func ComputeDeltas(records []schema.ScoreRecord) []schema.ScoreRecord {
	out := make([]schema.ScoreRecord, len(records))
	for i, rec := range records {
		rec.ScoreChange = rec.Score - rec.PrevScore
		out[i] = rec
	}
	return out
}
