package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/quantfolio/quantfolio/internal/pipeline"
	"github.com/quantfolio/quantfolio/internal/schema"
)

// SnapshotFunc loads a fresh raw snapshot from the ingest collaborator.
type SnapshotFunc func() ([]schema.RawRow, error)

// VIXFunc supplies the current volatility reading.
type VIXFunc func(ctx context.Context) (float64, error)

// PublishFunc hands a completed report to the serving surface.
type PublishFunc func(ctx context.Context, report *pipeline.Report)

// Refresher re-runs the evaluation pass on a cron cadence, mirroring the
// dashboard's periodic refresh. Each tick is one isolated batch: load
// snapshot, evaluate, publish.
type Refresher struct {
	engine  *pipeline.Engine
	load    SnapshotFunc
	vix     VIXFunc
	publish PublishFunc

	cron *cron.Cron

	mu      sync.Mutex
	lastVIX float64
}

// New wires a refresher. vix may be nil when no feed is configured; the
// refresher then evaluates with the last reading it was given (initially 0).
func New(engine *pipeline.Engine, load SnapshotFunc, vix VIXFunc, publish PublishFunc) *Refresher {
	return &Refresher{
		engine:  engine,
		load:    load,
		vix:     vix,
		publish: publish,
	}
}

// SetVIX seeds the reading used when no feed is available.
func (r *Refresher) SetVIX(vix float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastVIX = vix
}

// RunOnce executes a single refresh pass.
func (r *Refresher) RunOnce(ctx context.Context) error {
	rows, err := r.load()
	if err != nil {
		return fmt.Errorf("refresh aborted: %w", err)
	}

	vix := r.currentVIX(ctx)
	report := r.engine.Evaluate(rows, vix)
	r.publish(ctx, report)
	return nil
}

// Start schedules refreshes with the given cron expression (robfig/cron
// syntax, e.g. "@every 5m") until Stop is called.
func (r *Refresher) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			log.Warn().Err(err).Msg("scheduled refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	r.cron = c
	log.Info().Str("schedule", schedule).Msg("refresh scheduler started")
	return nil
}

// Stop halts the schedule; a refresh in flight completes.
func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// currentVIX consults the feed when present, falling back to the last known
// reading when it errors. The feed call can block on its rate limiter and
// HTTP timeout, so it runs outside the lock; the mutex guards only lastVIX.
func (r *Refresher) currentVIX(ctx context.Context) float64 {
	if r.vix != nil {
		vix, err := r.vix(ctx)
		if err == nil {
			r.mu.Lock()
			r.lastVIX = vix
			r.mu.Unlock()
			return vix
		}
		last := r.lastReading()
		log.Warn().Err(err).Float64("fallback", last).Msg("VIX feed unavailable, using last reading")
		return last
	}
	return r.lastReading()
}

func (r *Refresher) lastReading() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastVIX
}
