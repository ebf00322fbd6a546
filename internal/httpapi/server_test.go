package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/metrics"
	"github.com/quantfolio/quantfolio/internal/pipeline"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.RateLimitRPS = 1000
	cfg.Server.RateLimitBurst = 1000
	engine := pipeline.New(cfg, nil)
	return NewServer(cfg.Server, engine, metrics.NewRegistry(), nil, nil)
}

func postEvaluate(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/evaluate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	body := `{
		"vix": 30.0,
		"records": [
			{"symbol": "AAPL", "sector": "Tech", "score": 4.5, "prev_score": 5.0, "weight": 0.4},
			{"symbol": "MSFT", "sector": "Tech", "score": 7.0, "prev_score": 6.0, "weight": 0.6}
		]
	}`

	resp := postEvaluate(t, srv, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report pipeline.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Alerts, 2)
	assert.Equal(t, "AAPL: Score < 5.0 → SELL signal", report.Alerts[0].Message)
	assert.Equal(t, "circuit_breaker_active", report.Regime.String())
	require.NotNil(t, report.Aggregates)
}

func TestEvaluateEndpoint_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp := postEvaluate(t, srv, `not json`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportEndpoint_LifeCycle(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	// Nothing evaluated yet.
	resp, err := http.Get(srv.URL + "/api/v1/report")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postEvaluate(t, srv, `{"vix": 18.0, "records": [{"symbol": "X", "score": 6.0}]}`).Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report pipeline.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Records, 1)
	assert.Equal(t, "X", report.Records[0].Symbol)
}

func TestReportEndpoint_Filtered(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	postEvaluate(t, srv, `{"records": [
		{"symbol": "AAPL", "sector": "Tech", "score": 7.5},
		{"symbol": "XOM", "sector": "Energy", "score": 6.0},
		{"symbol": "F", "sector": "Auto", "score": 3.0}
	]}`).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/report?sector=Tech&sector=Energy&min_score=6.5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report pipeline.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Records, 1)
	assert.Equal(t, "AAPL", report.Records[0].Symbol)
	// Aggregates describe the full evaluation, not the filtered view.
	require.NotNil(t, report.Aggregates)

	resp, err = http.Get(srv.URL + "/api/v1/report?min_score=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportFiltersEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/report/filters")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postEvaluate(t, srv, `{"records": [
		{"symbol": "AAPL", "sector": "Tech", "score": 7.5},
		{"symbol": "XOM", "sector": "Energy", "score": 3.0}
	]}`).Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/report/filters")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Sectors  []string `json:"sectors"`
		MinScore float64  `json:"min_score"`
		MaxScore float64  `json:"max_score"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []string{"Energy", "Tech"}, payload.Sectors)
	assert.Equal(t, 3.0, payload.MinScore)
	assert.Equal(t, 7.5, payload.MaxScore)
}

func TestRegimeEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/regime?vix=30")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "circuit_breaker_active", payload["regime"])
	assert.Equal(t, 25.0, payload["threshold"])

	resp, err = http.Get(srv.URL + "/api/v1/regime?vix=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBreakdownEndpoint_FallbackOrdering(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	// Flat snapshot without breakdown columns: pivot unavailable, fallback
	// is the ascending-by-score list.
	postEvaluate(t, srv, `{"records": [
		{"symbol": "HIGH", "score": 9.0},
		{"symbol": "LOW", "score": 2.0},
		{"symbol": "MID", "score": 5.5}
	]}`).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/breakdown")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload breakdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.False(t, payload.Available)
	require.Len(t, payload.Fallback, 3)
	assert.Equal(t, "LOW", payload.Fallback[0].Symbol)
	assert.Equal(t, "MID", payload.Fallback[1].Symbol)
	assert.Equal(t, "HIGH", payload.Fallback[2].Symbol)
}

func TestBreakdownEndpoint_Matrix(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	postEvaluate(t, srv, `{"records": [
		{"symbol": "AAPL", "score": 6.0, "category": "Momentum", "score_component": 2.1},
		{"symbol": "AAPL", "score": 6.0, "category": "Value", "score_component": 1.4}
	]}`).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/breakdown")
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload breakdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Available)
	assert.Equal(t, 2.1, payload.Matrix["AAPL"]["Momentum"])
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecentAlerts_NotConfigured(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/alerts/recent")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.RateLimitRPS = 1
	cfg.Server.RateLimitBurst = 1
	s := NewServer(cfg.Server, pipeline.New(cfg, nil), nil, nil, nil)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	first, err := http.Get(srv.URL + "/api/v1/regime?vix=20")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/api/v1/regime?vix=20")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestWebsocketReceivesBroadcast(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to register before broadcasting.
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	postEvaluate(t, srv, `{"records": [{"symbol": "PUSH", "score": 6.0}]}`).Body.Close()

	var report pipeline.Report
	require.NoError(t, conn.ReadJSON(&report))
	require.Len(t, report.Records, 1)
	assert.Equal(t, "PUSH", report.Records[0].Symbol)
}
