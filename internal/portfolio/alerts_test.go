package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/schema"
)

func defaultClassifier() *Classifier {
	return NewClassifier(config.Defaults().Thresholds)
}

func TestClassify_Scenario(t *testing.T) {
	records := ComputeDeltas([]schema.ScoreRecord{
		{Symbol: "AAPL", Score: 4.5, PrevScore: 5.0},
		{Symbol: "MSFT", Score: 7.0, PrevScore: 6.0},
	})

	alerts := defaultClassifier().Classify(records)
	require.Len(t, alerts, 2)

	assert.Equal(t, SellSignal, alerts[0].Kind)
	assert.Equal(t, "AAPL", alerts[0].Symbol)
	assert.Equal(t, 4.5, alerts[0].Value)
	assert.Equal(t, "AAPL: Score < 5.0 → SELL signal", alerts[0].Message)

	assert.Equal(t, ReviewPosition, alerts[1].Kind)
	assert.Equal(t, "MSFT", alerts[1].Symbol)
	assert.InDelta(t, 1.0, alerts[1].Value, 1e-12)
	assert.Equal(t, "MSFT: Δ Score +1.00 → Review position", alerts[1].Message)
}

func TestClassify_SellOutranksReview(t *testing.T) {
	// Below the sell threshold AND a large delta: exactly one SellSignal.
	records := ComputeDeltas([]schema.ScoreRecord{
		{Symbol: "BOTH", Score: 3.0, PrevScore: 8.0},
	})

	alerts := defaultClassifier().Classify(records)
	require.Len(t, alerts, 1)
	assert.Equal(t, SellSignal, alerts[0].Kind)
}

func TestClassify_BoundariesProduceNoAlert(t *testing.T) {
	// Score exactly at the threshold is not < threshold; delta exactly at
	// the threshold is not > threshold.
	records := []schema.ScoreRecord{
		{Symbol: "EDGE", Score: 5.0, ScoreChange: 0.0},
		{Symbol: "DELTA-EDGE", Score: 6.0, ScoreChange: 0.8},
		{Symbol: "NEG-EDGE", Score: 6.0, ScoreChange: -0.8},
	}

	alerts := defaultClassifier().Classify(records)
	assert.Empty(t, alerts)
}

func TestClassify_NegativeDeltaReview(t *testing.T) {
	records := []schema.ScoreRecord{
		{Symbol: "DROP", Score: 6.0, ScoreChange: -0.81},
	}

	alerts := defaultClassifier().Classify(records)
	require.Len(t, alerts, 1)
	assert.Equal(t, ReviewPosition, alerts[0].Kind)
	assert.Equal(t, "DROP: Δ Score -0.81 → Review position", alerts[0].Message)
}

func TestClassify_StableInputOrder(t *testing.T) {
	records := []schema.ScoreRecord{
		{Symbol: "C", Score: 1.0},
		{Symbol: "A", Score: 2.0},
		{Symbol: "B", Score: 3.0},
	}

	alerts := defaultClassifier().Classify(records)
	require.Len(t, alerts, 3)
	assert.Equal(t, "C", alerts[0].Symbol)
	assert.Equal(t, "A", alerts[1].Symbol)
	assert.Equal(t, "B", alerts[2].Symbol)
}

func TestClassify_ThresholdsConfigurable(t *testing.T) {
	thresholds := config.Thresholds{SellThreshold: 2.0, ReviewDeltaThreshold: 3.0}
	records := []schema.ScoreRecord{
		{Symbol: "OK", Score: 4.0, ScoreChange: 1.0},   // fine under custom policy
		{Symbol: "SELL", Score: 1.5, ScoreChange: 0.0}, // below custom sell bar
	}

	alerts := NewClassifier(thresholds).Classify(records)
	require.Len(t, alerts, 1)
	assert.Equal(t, "SELL", alerts[0].Symbol)
	assert.Equal(t, "SELL: Score < 2.0 → SELL signal", alerts[0].Message)
}

func TestClassify_EmptyPortfolioStable(t *testing.T) {
	alerts := defaultClassifier().Classify(nil)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}
