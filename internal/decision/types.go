// Package decision defines the upstream trade decision record and the
// exchange-aware sanitizer that bounds it before execution.
package decision

import (
	"fmt"
	"math"
	"strings"

	"coinpilot/internal/risk"
)

// Action of a trade decision.
type Action string

const (
	ActionOpen     Action = "open"
	ActionClose    Action = "close"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
	ActionHold     Action = "hold"
)

var validActions = map[Action]bool{
	ActionOpen: true, ActionClose: true, ActionIncrease: true,
	ActionDecrease: true, ActionHold: true,
}

// Decision is one proposed trade produced upstream (LLM or strategy).
// The core never creates decisions; it sanitizes them.
type Decision struct {
	Action          Action         `json:"action"`
	Symbol          string         `json:"symbol"`
	Direction       risk.Direction `json:"direction,omitempty"`
	Leverage        int            `json:"leverage,omitempty"`
	PositionSizePct float64        `json:"position_size_pct,omitempty"`
	StopLossPct     float64        `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64        `json:"take_profit_pct,omitempty"`
	Confidence      float64        `json:"confidence,omitempty"`
	Reasoning       string         `json:"reasoning,omitempty"`
}

// New constructs a validated decision. Out-of-range fields fail fast here
// so malformed data never propagates into sizing.
func New(action Action, sym string, dir risk.Direction, leverage int, sizePct, confidence float64) (Decision, error) {
	d := Decision{
		Action:          action,
		Symbol:          strings.ToUpper(strings.TrimSpace(sym)),
		Direction:       dir,
		Leverage:        leverage,
		PositionSizePct: sizePct,
		Confidence:      confidence,
	}
	if err := d.Validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Validate checks structural invariants. Sizing decisions carry stricter
// requirements than close/hold.
func (d *Decision) Validate() error {
	if !validActions[d.Action] {
		return fmt.Errorf("invalid action: %q", d.Action)
	}
	if strings.TrimSpace(d.Symbol) == "" {
		return fmt.Errorf("decision requires a symbol")
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0, 1], got %v", d.Confidence)
	}
	switch d.Action {
	case ActionOpen, ActionIncrease:
		if !d.Direction.Valid() {
			return fmt.Errorf("%s requires direction long or short, got %q", d.Action, d.Direction)
		}
		if d.Leverage < 1 {
			return fmt.Errorf("%s requires leverage >= 1, got %d", d.Action, d.Leverage)
		}
		if math.IsNaN(d.PositionSizePct) || d.PositionSizePct <= 0 {
			return fmt.Errorf("%s requires position_size_pct > 0, got %v", d.Action, d.PositionSizePct)
		}
	}
	if d.StopLossPct < 0 || d.TakeProfitPct < 0 {
		return fmt.Errorf("stop-loss and take-profit percentages must be >= 0")
	}
	return nil
}
