package vix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/config"
)

func providerConfig(url string) config.VIXProviderConfig {
	return config.VIXProviderConfig{
		URL:            url,
		Timeout:        2 * time.Second,
		RateLimitRPS:   1000, // keep tests fast
		BreakerTimeout: 100 * time.Millisecond,
		BreakerMaxFail: 2,
	}
}

func TestCurrent_ReadsFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vix": 27.4}`))
	}))
	defer srv.Close()

	p := New(providerConfig(srv.URL))
	v, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27.4, v)
}

func TestCurrent_Disabled(t *testing.T) {
	p := New(providerConfig(""))
	assert.False(t, p.Enabled())

	_, err := p.Current(context.Background())
	require.Error(t, err)
}

func TestCurrent_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(providerConfig(srv.URL))
	_, err := p.Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestCurrent_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(providerConfig(srv.URL))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.Current(ctx)
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls)

	// Breaker is now open: the feed is not contacted again.
	_, err := p.Current(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
