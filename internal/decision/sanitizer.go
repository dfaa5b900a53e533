package decision

import (
	"fmt"

	"coinpilot/internal/risk"
)

// High-exposure downgrade policy thresholds.
const (
	highExposureThresholdPct = 25.0
	highExposureKeepConf     = 0.75
	highExposureCappedPct    = 2.0
)

// ExchangeTraits describes what the execution venue can actually do.
// A spot-only venue forces leverage to exactly 1 no matter what upstream
// suggested.
type ExchangeTraits struct {
	Name           string
	SupportsMargin bool
	MaxLeverage    int
}

// Sanitizer bounds upstream decisions to exchange capabilities and risk
// limits. It transforms decisions; it never creates them.
type Sanitizer struct {
	mgr    *risk.Manager
	traits ExchangeTraits
}

func NewSanitizer(mgr *risk.Manager, traits ExchangeTraits) *Sanitizer {
	return &Sanitizer{mgr: mgr, traits: traits}
}

// Sanitize returns a bounded copy of d plus the risk verdict. Hold and
// close decisions pass through untouched; sizing decisions get exchange
// clamps, default stop/target percentages and the full risk check chain.
func (s *Sanitizer) Sanitize(d Decision, currentExposurePct, availableBalance float64) (Decision, bool, string) {
	if err := d.Validate(); err != nil {
		return d, false, fmt.Sprintf("malformed decision: %v", err)
	}
	if d.Action != ActionOpen && d.Action != ActionIncrease {
		return d, true, "no sizing required"
	}

	out := d
	if !s.traits.SupportsMargin {
		out.Leverage = 1
	} else {
		if s.traits.MaxLeverage > 0 && out.Leverage > s.traits.MaxLeverage {
			out.Leverage = s.traits.MaxLeverage
		}
		if max := s.mgr.Limits().MaxLeverage; out.Leverage > max {
			out.Leverage = max
		}
	}
	if out.Leverage < 1 {
		out.Leverage = 1
	}
	if out.StopLossPct <= 0 {
		out.StopLossPct = s.mgr.Limits().DefaultStopLossPct
	}
	if out.TakeProfitPct <= 0 {
		out.TakeProfitPct = s.mgr.Limits().DefaultTakeProfitPct
	}
	if max := s.mgr.Limits().MaxPositionSizePct; out.PositionSizePct > max {
		out.PositionSizePct = max
	}

	ok, reason := s.mgr.ValidateTrade(out.Leverage, out.PositionSizePct, out.Confidence, currentExposurePct, availableBalance)
	return out, ok, reason
}

// AdjustForHighExposure applies the exposure-dependent downgrade policy:
// above the threshold a high-conviction entry survives with its size capped
// at 2%, anything less convinced is downgraded to hold. This is a
// decision transform, not a gate; callers always get a usable decision
// back.
func (s *Sanitizer) AdjustForHighExposure(d Decision, currentExposurePct float64) Decision {
	if currentExposurePct <= highExposureThresholdPct {
		return d
	}
	if d.Action != ActionOpen && d.Action != ActionIncrease {
		return d
	}
	out := d
	if d.Confidence >= highExposureKeepConf {
		if out.PositionSizePct > highExposureCappedPct {
			out.PositionSizePct = highExposureCappedPct
			out.Reasoning = appendReason(out.Reasoning,
				fmt.Sprintf("size capped at %.1f%% due to %.1f%% exposure", highExposureCappedPct, currentExposurePct))
		}
		return out
	}
	out.Action = ActionHold
	out.Leverage = 0
	out.PositionSizePct = 0
	out.Reasoning = appendReason(out.Reasoning,
		fmt.Sprintf("downgraded to hold: exposure %.1f%% with confidence %.2f below %.2f",
			currentExposurePct, d.Confidence, highExposureKeepConf))
	return out
}

func appendReason(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
