package regime

import (
	"fmt"
	"sync"
	"time"
)

// Regime is the discrete trading regime derived from the volatility index.
type Regime int

const (
	NormalTrading Regime = iota
	CircuitBreakerActive
)

func (r Regime) String() string {
	switch r {
	case NormalTrading:
		return "normal_trading"
	case CircuitBreakerActive:
		return "circuit_breaker_active"
	default:
		return "unknown"
	}
}

// MarshalText renders the regime as its string form in JSON payloads.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText restores a regime from its string form.
func (r *Regime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal_trading":
		*r = NormalTrading
	case "circuit_breaker_active":
		*r = CircuitBreakerActive
	default:
		return fmt.Errorf("unknown regime %q", text)
	}
	return nil
}

// Change records one regime transition for stability reporting.
type Change struct {
	Timestamp time.Time `json:"timestamp"`
	From      Regime    `json:"from"`
	To        Regime    `json:"to"`
	VIX       float64   `json:"vix"`
}

// Evaluator classifies volatility-index readings against the circuit-breaker
// threshold and tracks transitions across observations. Classification is
// pure and total over any numeric reading; the documented operating range
// [10, 80] is advisory and enforced by the caller's input surface, not here.
// Safe for concurrent use: one evaluator is shared by the HTTP handlers and
// the refresh scheduler.
type Evaluator struct {
	threshold float64

	mu      sync.Mutex
	last    *Regime
	history []Change
}

// NewEvaluator builds an evaluator for the given VIX threshold.
func NewEvaluator(threshold float64) *Evaluator {
	return &Evaluator{threshold: threshold}
}

// Classify maps a single reading to a regime: strictly above the threshold is
// CircuitBreakerActive, everything else NormalTrading.
func (e *Evaluator) Classify(vix float64) Regime {
	if vix > e.threshold {
		return CircuitBreakerActive
	}
	return NormalTrading
}

// Observe classifies a reading and records the transition when the regime
// differs from the previous observation.
func (e *Evaluator) Observe(ts time.Time, vix float64) Regime {
	current := e.Classify(vix)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last != nil && *e.last != current {
		e.history = append(e.history, Change{
			Timestamp: ts,
			From:      *e.last,
			To:        current,
			VIX:       vix,
		})
	}
	e.last = &current
	return current
}

// History returns a copy of the recorded regime transitions in observation
// order.
func (e *Evaluator) History() []Change {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Change, len(e.history))
	copy(out, e.history)
	return out
}

// Threshold reports the configured circuit-breaker level.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}
