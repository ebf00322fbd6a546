package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/pipeline"
	"github.com/quantfolio/quantfolio/internal/portfolio"
	"github.com/quantfolio/quantfolio/internal/regime"
)

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		ID:        "11111111-2222-3333-4444-555555555555",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Alerts: []portfolio.Alert{
			{Symbol: "AAPL", Kind: portfolio.SellSignal, Value: 4.5, Message: "AAPL: Score < 5.0 → SELL signal"},
		},
		SectorAllocation: map[string]float64{"Tech": 0.7},
		Aggregates:       &pipeline.Aggregates{AverageScore: 6.2, RiskAdjustedRatio: 3.1},
		VIX:              30.0,
		Regime:           regime.CircuitBreakerActive,
	}
}

func TestSetLatest(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client, 5*time.Minute)

	report := sampleReport()
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	mock.ExpectSet("quantfolio:report:latest", payload, 5*time.Minute).SetVal("OK")

	require.NoError(t, c.SetLatest(context.Background(), report))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_RoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client, 5*time.Minute)

	report := sampleReport()
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	mock.ExpectGet("quantfolio:report:latest").SetVal(string(payload))

	got, err := c.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, regime.CircuitBreakerActive, got.Regime)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, portfolio.SellSignal, got.Alerts[0].Kind)
	assert.Equal(t, report.Aggregates.AverageScore, got.Aggregates.AverageScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_Empty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client, time.Minute)

	mock.ExpectGet("quantfolio:report:latest").RedisNil()

	_, err := c.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoReport)
}
