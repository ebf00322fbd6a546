package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quantfolio/quantfolio/internal/pipeline"
)

const latestKey = "quantfolio:report:latest"

// ErrNoReport signals that no evaluation has been cached yet.
var ErrNoReport = errors.New("no cached report")

// ReportCache keeps the latest evaluation report in Redis so dashboard
// clients can read the current state without forcing a re-evaluation. The
// core stays stateless; this is serve-mode plumbing only.
type ReportCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New connects a cache to the given Redis address.
func New(addr string, ttl time.Duration) *ReportCache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

// NewWithClient wraps an existing client, which keeps the cache testable
// against a mock.
func NewWithClient(client redis.Cmdable, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// SetLatest stores the report under the well-known latest key.
func (c *ReportCache) SetLatest(ctx context.Context, report *pipeline.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, latestKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// Latest returns the most recently cached report, or ErrNoReport when the
// key is absent or expired.
func (c *ReportCache) Latest(ctx context.Context) (*pipeline.Report, error) {
	payload, err := c.client.Get(ctx, latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report pipeline.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, nil
}
