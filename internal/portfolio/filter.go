package portfolio

import (
	"sort"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// Filter selects records for detailed views: sector membership plus an
// inclusive score band. A nil sector list means all sectors.
type Filter struct {
	Sectors  []string
	MinScore float64
	MaxScore float64
}

// Apply returns the matching records in input order.
func (f Filter) Apply(records []schema.ScoreRecord) []schema.ScoreRecord {
	allowed := make(map[string]bool, len(f.Sectors))
	for _, s := range f.Sectors {
		allowed[s] = true
	}

	out := make([]schema.ScoreRecord, 0, len(records))
	for _, rec := range records {
		if len(f.Sectors) > 0 && !allowed[rec.Sector] {
			continue
		}
		if rec.Score < f.MinScore || rec.Score > f.MaxScore {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Sectors returns the distinct sectors present in the table, sorted, for
// populating filter choices.
func Sectors(records []schema.ScoreRecord) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Sector != "" {
			seen[rec.Sector] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ScoreBounds returns the min and max score across the table for seeding a
// band filter. EmptyInput applies as with the other aggregates.
func ScoreBounds(records []schema.ScoreRecord) (min, max float64, err error) {
	if len(records) == 0 {
		return 0, 0, ErrEmptyInput
	}
	min, max = records[0].Score, records[0].Score
	for _, rec := range records[1:] {
		if rec.Score < min {
			min = rec.Score
		}
		if rec.Score > max {
			max = rec.Score
		}
	}
	return min, max, nil
}

// OverviewOrder returns records sorted descending by score, ties kept in
// input order — the overview table ordering.
func OverviewOrder(records []schema.ScoreRecord) []schema.ScoreRecord {
	out := make([]schema.ScoreRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
