package portfolio

import (
	"fmt"
	"math"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/schema"
)

// AlertKind classifies an alert.
type AlertKind int

const (
	SellSignal AlertKind = iota
	ReviewPosition
)

func (k AlertKind) String() string {
	switch k {
	case SellSignal:
		return "sell_signal"
	case ReviewPosition:
		return "review_position"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its string form in JSON payloads.
func (k AlertKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText restores a kind from its string form.
func (k *AlertKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sell_signal":
		*k = SellSignal
	case "review_position":
		*k = ReviewPosition
	default:
		return fmt.Errorf("unknown alert kind %q", text)
	}
	return nil
}

// Alert is one classified per-symbol message. Value carries the number that
// triggered the rule: the score for SellSignal, the score delta for
// ReviewPosition.
type Alert struct {
	Symbol  string    `json:"symbol"`
	Kind    AlertKind `json:"kind"`
	Value   float64   `json:"value"`
	Message string    `json:"message"`
}

// rule is one classification step: a predicate plus an alert constructor.
// Rules are evaluated top to bottom, first match wins, so priority lives in
// the ordering rather than in nested conditionals.
type rule struct {
	name  string
	match func(schema.ScoreRecord) bool
	build func(schema.ScoreRecord) Alert
}

// Classifier applies the ordered alert rules to a scored table.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the classifier for the given thresholds. The sell rule
// outranks the review rule: a row below the sell threshold never also emits a
// review alert, however large its delta.
func NewClassifier(t config.Thresholds) *Classifier {
	return &Classifier{
		rules: []rule{
			{
				name: "sell_signal",
				match: func(r schema.ScoreRecord) bool {
					return r.Score < t.SellThreshold
				},
				build: func(r schema.ScoreRecord) Alert {
					return Alert{
						Symbol: r.Symbol,
						Kind:   SellSignal,
						Value:  r.Score,
						Message: fmt.Sprintf("%s: Score < %.1f → SELL signal",
							r.Symbol, t.SellThreshold),
					}
				},
			},
			{
				name: "review_position",
				match: func(r schema.ScoreRecord) bool {
					return math.Abs(r.ScoreChange) > t.ReviewDeltaThreshold
				},
				build: func(r schema.ScoreRecord) Alert {
					return Alert{
						Symbol: r.Symbol,
						Kind:   ReviewPosition,
						Value:  r.ScoreChange,
						Message: fmt.Sprintf("%s: Δ Score %+.2f → Review position",
							r.Symbol, r.ScoreChange),
					}
				},
			},
		},
	}
}

// Classify walks the table in input order and emits at most one alert per
// row. An empty result is the "portfolio stable" case, not an error.
func (c *Classifier) Classify(records []schema.ScoreRecord) []Alert {
	alerts := make([]Alert, 0)
	for _, rec := range records {
		for _, rl := range c.rules {
			if rl.match(rec) {
				alerts = append(alerts, rl.build(rec))
				break
			}
		}
	}
	return alerts
}
