package schema

import "time"

// ScoreRecord is one fully-populated row of the portfolio scoring table.
// Records are built once per evaluation pass by Normalize and are not
// mutated afterwards; ScoreChange is always derived, never trusted from
// raw input.
type ScoreRecord struct {
	Symbol      string  `json:"symbol"`
	Company     string  `json:"company"`
	Sector      string  `json:"sector"`
	Score       float64 `json:"score"`
	PrevScore   float64 `json:"prev_score"`
	ScoreChange float64 `json:"score_change"`
	Weight      float64 `json:"weight"`
	Verdict     string  `json:"verdict"`

	// Risk feeds the risk-adjusted ratio. HasRisk distinguishes a genuine
	// zero reading from an absent column.
	Risk    float64 `json:"risk"`
	HasRisk bool    `json:"has_risk"`

	// Sub-scores are pass-through display fields.
	Fundamental float64 `json:"fundamental"`
	Technical   float64 `json:"technical"`
	Macro       float64 `json:"macro"`
	Sentiment   float64 `json:"sentiment"`

	// Long-form breakdown fields consumed only by the pivot builder.
	Category       string  `json:"category,omitempty"`
	ScoreComponent float64 `json:"score_component,omitempty"`
	HasComponent   bool    `json:"has_component,omitempty"`
}

// VixRecord is one row of the historical volatility table.
type VixRecord struct {
	Date time.Time `json:"date"`
	VIX  float64   `json:"vix"`
}

// DefaultVerdict fills the verdict column when the input omits it.
const DefaultVerdict = "N/A"
