package portfolio

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// ErrEmptyInput signals an aggregate that needs at least one row. It is
// distinct from a valid zero-valued result; callers render "no data" instead
// of a mean of nothing.
var ErrEmptyInput = errors.New("empty input table")

// SectorAllocation groups records by sector and sums portfolio weight per
// group. Only sectors present in the input appear in the result; an empty
// table yields an empty map, not an error. Weights are passed through as
// supplied — no sum-to-one invariant is enforced.
func SectorAllocation(records []schema.ScoreRecord) map[string]float64 {
	alloc := make(map[string]float64)
	for _, rec := range records {
		alloc[rec.Sector] += rec.Weight
	}
	return alloc
}

// AverageScore is the arithmetic mean of the composite score across all rows.
func AverageScore(records []schema.ScoreRecord) (float64, error) {
	if len(records) == 0 {
		return 0, ErrEmptyInput
	}
	scores := make([]float64, len(records))
	for i, rec := range records {
		scores[i] = rec.Score
	}
	return stat.Mean(scores, nil), nil
}

// RiskAdjustedRatio is the Sharpe-like estimate: mean score divided by mean
// risk, with the divisor floored to keep missing or near-zero risk readings
// from blowing up the ratio. Rows without a risk reading are excluded from
// the risk mean; when no row supplies one, the mean is taken as zero and the
// floor carries the division. The formula is a documented heuristic carried
// over as-is, not a finance-domain guarantee.
func RiskAdjustedRatio(records []schema.ScoreRecord, riskFloor float64) (float64, error) {
	avgScore, err := AverageScore(records)
	if err != nil {
		return 0, err
	}

	var risks []float64
	for _, rec := range records {
		if rec.HasRisk {
			risks = append(risks, rec.Risk)
		}
	}

	avgRisk := 0.0
	if len(risks) > 0 {
		avgRisk = stat.Mean(risks, nil)
	}

	return avgScore / math.Max(avgRisk, riskFloor), nil
}
