package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/schema"
)

func longFormRow(symbol, category string, value float64) schema.ScoreRecord {
	return schema.ScoreRecord{
		Symbol:         symbol,
		Category:       category,
		ScoreComponent: value,
		HasComponent:   true,
		Verdict:        schema.DefaultVerdict,
	}
}

func TestBuildBreakdown_Reshape(t *testing.T) {
	records := []schema.ScoreRecord{
		longFormRow("AAPL", "Momentum", 2.1),
		longFormRow("AAPL", "Value", 1.4),
		longFormRow("MSFT", "Momentum", 3.0),
	}

	result := BuildBreakdown(records)
	require.True(t, result.Available)

	assert.Equal(t, 2.1, result.Matrix["AAPL"]["Momentum"])
	assert.Equal(t, 1.4, result.Matrix["AAPL"]["Value"])
	assert.Equal(t, 3.0, result.Matrix["MSFT"]["Momentum"])

	// Sparse: no zero-filling of the absent (MSFT, Value) pair.
	_, present := result.Matrix["MSFT"]["Value"]
	assert.False(t, present)
}

func TestBuildBreakdown_RoundTrip(t *testing.T) {
	records := []schema.ScoreRecord{
		longFormRow("AAPL", "Momentum", 2.1),
		longFormRow("AAPL", "Value", 1.4),
		longFormRow("MSFT", "Momentum", 3.0),
	}

	result := BuildBreakdown(records)
	require.True(t, result.Available)

	flat := result.Matrix.Flatten()
	require.Len(t, flat, 3)

	again := BuildBreakdown(flat)
	require.True(t, again.Available)
	assert.Equal(t, result.Matrix, again.Matrix)
}

func TestBuildBreakdown_MissingColumnsUnavailable(t *testing.T) {
	records := []schema.ScoreRecord{
		longFormRow("AAPL", "Momentum", 2.1),
		{Symbol: "MSFT"}, // no category, no component
	}

	result := BuildBreakdown(records)
	assert.False(t, result.Available)
	assert.Contains(t, result.Reason, "breakdown columns missing")
}

func TestBuildBreakdown_ConflictingDuplicatesUnavailable(t *testing.T) {
	records := []schema.ScoreRecord{
		longFormRow("AAPL", "Momentum", 2.1),
		longFormRow("AAPL", "Momentum", 9.9),
	}

	result := BuildBreakdown(records)
	assert.False(t, result.Available)
	assert.Contains(t, result.Reason, "conflicting values")
}

func TestBuildBreakdown_AgreeingDuplicatesAllowed(t *testing.T) {
	records := []schema.ScoreRecord{
		longFormRow("AAPL", "Momentum", 2.1),
		longFormRow("AAPL", "Momentum", 2.1),
	}

	result := BuildBreakdown(records)
	require.True(t, result.Available)
	assert.Equal(t, 2.1, result.Matrix["AAPL"]["Momentum"])
}

func TestFallbackList_StableAscendingByScore(t *testing.T) {
	records := []schema.ScoreRecord{
		{Symbol: "HIGH", Score: 8.0},
		{Symbol: "TIE-1", Score: 5.0},
		{Symbol: "LOW", Score: 2.0},
		{Symbol: "TIE-2", Score: 5.0},
	}

	out := FallbackList(records)
	require.Len(t, out, 4)
	assert.Equal(t, "LOW", out[0].Symbol)
	assert.Equal(t, "TIE-1", out[1].Symbol) // input order preserved on tie
	assert.Equal(t, "TIE-2", out[2].Symbol)
	assert.Equal(t, "HIGH", out[3].Symbol)

	// Original slice untouched.
	assert.Equal(t, "HIGH", records[0].Symbol)
}
