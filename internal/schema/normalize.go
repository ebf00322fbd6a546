package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRow is one untyped row as delivered by an ingest collaborator. Keys are
// matched case-insensitively so both dashboard-style headers ("Prev_Score")
// and snake_case JSON keys ("prev_score") resolve to the same field.
type RawRow map[string]interface{}

// RowError describes a single row that could not be interpreted. It is a
// diagnostic, not a failure: the offending row is excluded and the rest of
// the batch proceeds.
type RowError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s", e.Index, e.Field, e.Reason)
}

// Normalize applies the schema-with-defaults to a raw table: every required
// field exists on every returned record (missing numerics default to 0.0,
// missing verdict to "N/A"), and rows whose numeric fields cannot be
// interpreted are reported as RowErrors instead of aborting the batch.
func Normalize(rows []RawRow) ([]ScoreRecord, []RowError) {
	records := make([]ScoreRecord, 0, len(rows))
	var errs []RowError

	for i, row := range rows {
		rec, err := normalizeRow(i, canonicalize(row))
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		records = append(records, rec)
	}

	return records, errs
}

func normalizeRow(index int, row RawRow) (ScoreRecord, *RowError) {
	rec := ScoreRecord{Verdict: DefaultVerdict}

	sym, ok := stringValue(row["symbol"])
	if !ok || sym == "" {
		return rec, &RowError{Index: index, Field: "symbol", Reason: "missing or empty"}
	}
	rec.Symbol = sym
	rec.Company, _ = stringValue(row["company"])
	rec.Sector, _ = stringValue(row["sector"])
	if v, ok := stringValue(row["verdict"]); ok && v != "" {
		rec.Verdict = v
	}

	required := []struct {
		key string
		dst *float64
	}{
		{"score", &rec.Score},
		{"prev_score", &rec.PrevScore},
		{"weight", &rec.Weight},
	}
	for _, f := range required {
		raw, present := row[f.key]
		if !present {
			continue // default 0.0
		}
		v, err := floatValue(raw)
		if err != nil {
			return rec, &RowError{Index: index, Field: f.key, Reason: err.Error()}
		}
		*f.dst = v
	}

	if raw, present := row["risk"]; present {
		v, err := floatValue(raw)
		if err != nil {
			return rec, &RowError{Index: index, Field: "risk", Reason: err.Error()}
		}
		rec.Risk = v
		rec.HasRisk = true
	}

	// Display-only sub-scores: uninterpretable values degrade to zero
	// rather than invalidating the row, since no decision logic reads them.
	rec.Fundamental = optionalFloat(row["fundamental"])
	rec.Technical = optionalFloat(row["technical"])
	rec.Macro = optionalFloat(row["macro"])
	rec.Sentiment = optionalFloat(row["sentiment"])

	rec.Category, _ = stringValue(row["category"])
	if raw, present := row["score_component"]; present {
		if v, err := floatValue(raw); err == nil {
			rec.ScoreComponent = v
			rec.HasComponent = true
		}
	}

	return rec, nil
}

// canonicalize folds keys to snake_case lower so "Prev_Score", "prev_score"
// and "PREV SCORE" all address the same field.
func canonicalize(row RawRow) RawRow {
	out := make(RawRow, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.ReplaceAll(key, " ", "_")
		out[key] = v
	}
	return out
}

func stringValue(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// floatValue coerces the value shapes the ingest collaborators produce:
// JSON numbers, integer literals, and numeric strings from CSV cells.
func floatValue(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("empty numeric cell")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("null numeric value")
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func optionalFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	f, err := floatValue(v)
	if err != nil {
		return 0
	}
	return f
}
