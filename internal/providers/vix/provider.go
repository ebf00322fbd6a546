package vix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantfolio/quantfolio/internal/config"
)

// Provider fetches the current volatility-index reading from an external
// feed. The core never performs I/O; this collaborator sits at the edge and
// hands readings to the caller. Calls are rate limited and guarded by a
// circuit breaker so a flapping feed cannot stall an evaluation loop.
type Provider struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

type reading struct {
	VIX float64 `json:"vix"`
}

// New builds a provider from configuration. An empty URL yields a disabled
// provider whose Current always errors; callers then supply readings by hand.
func New(cfg config.VIXProviderConfig) *Provider {
	settings := gobreaker.Settings{
		Name:    "vix-feed",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFail
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("VIX feed breaker state change")
		},
	}

	return &Provider{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
	}
}

// Enabled reports whether a feed URL is configured.
func (p *Provider) Enabled() bool {
	return p.url != ""
}

// Current returns the latest volatility reading from the feed.
func (p *Provider) Current(ctx context.Context) (float64, error) {
	if !p.Enabled() {
		return 0, fmt.Errorf("no VIX feed configured")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("VIX feed unavailable: %w", err)
	}

	return result.(float64), nil
}

func (p *Provider) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var r reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("failed to decode VIX payload: %w", err)
	}

	return r.VIX, nil
}
