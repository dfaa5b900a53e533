package risk

import (
	"fmt"
	"math"
)

// Close trigger reasons returned by ShouldClosePosition.
const (
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTakeProfit = "take_profit"
)

// Params is the risk-adjusted parameter set for one proposed trade.
type Params struct {
	Leverage        int     `json:"leverage"`
	PositionSizePct float64 `json:"position_size_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
}

// Manager validates and sizes trades against a fixed Limits snapshot.
// All methods are pure functions of their inputs; Manager carries no
// mutable state and is safe for concurrent use.
type Manager struct {
	limits Limits
}

func NewManager(limits Limits) *Manager {
	if limits.MaxLeverage < 1 {
		limits.MaxLeverage = 1
	}
	if limits.DefaultStopLossPct <= 0 {
		limits.DefaultStopLossPct = 3.0
	}
	if limits.DefaultTakeProfitPct <= 0 {
		limits.DefaultTakeProfitPct = 5.0
	}
	if limits.MinOrderUSD <= 0 {
		limits.MinOrderUSD = 10.0
	}
	return &Manager{limits: limits}
}

func (m *Manager) Limits() Limits { return m.limits }

// CheckLeverage reports whether leverage is within [1, max].
func (m *Manager) CheckLeverage(leverage int) bool {
	return leverage >= 1 && leverage <= m.limits.MaxLeverage
}

// CheckPositionSize reports whether sizePct is within (0, max] and the
// resulting order clears the minimum order floor.
func (m *Manager) CheckPositionSize(sizePct, availableBalance float64) bool {
	if math.IsNaN(sizePct) || sizePct <= 0 || sizePct > m.limits.MaxPositionSizePct {
		return false
	}
	return availableBalance*sizePct/100 >= m.limits.MinOrderUSD
}

// CheckTotalExposure reports whether adding newPct keeps aggregate exposure
// at or under the cap. The boundary is inclusive.
func (m *Manager) CheckTotalExposure(newPct, currentPct float64) bool {
	if math.IsNaN(newPct) || math.IsNaN(currentPct) {
		return false
	}
	return newPct+currentPct <= m.limits.MaxTotalExposurePct
}

// CheckConfidence reports whether confidence meets the threshold,
// boundary inclusive.
func (m *Manager) CheckConfidence(confidence float64) bool {
	if math.IsNaN(confidence) {
		return false
	}
	return confidence >= m.limits.MinConfidence
}

// StopLossPrice computes the stop price for an entry. pct <= 0 selects the
// configured default. Long stops sit below entry, short stops above.
func (m *Manager) StopLossPrice(entry float64, dir Direction, pct float64) (float64, error) {
	if err := checkFinitePositive("entry price", entry); err != nil {
		return 0, err
	}
	if !dir.Valid() {
		return 0, &InvalidInputError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", dir)}
	}
	if pct <= 0 || math.IsNaN(pct) {
		pct = m.limits.DefaultStopLossPct
	}
	return relativePrice(entry, pct, dir == Long), nil
}

// TakeProfitPrice computes the profit target for an entry. pct <= 0 selects
// the configured default. Long targets sit above entry, short below.
func (m *Manager) TakeProfitPrice(entry float64, dir Direction, pct float64) (float64, error) {
	if err := checkFinitePositive("entry price", entry); err != nil {
		return 0, err
	}
	if !dir.Valid() {
		return 0, &InvalidInputError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", dir)}
	}
	if pct <= 0 || math.IsNaN(pct) {
		pct = m.limits.DefaultTakeProfitPct
	}
	return relativePrice(entry, pct, dir == Short), nil
}

// PositionSizePct scales position size linearly with confidence:
// 1.0% at confidence 0.5, 5.0% at confidence 1.0, clamped to [1.0, maxPct]
// and rounded to one decimal. A non-positive balance sizes to zero.
func (m *Manager) PositionSizePct(availableBalance, confidence float64, maxPct float64) float64 {
	if availableBalance <= 0 || math.IsNaN(availableBalance) || math.IsNaN(confidence) {
		return 0
	}
	if maxPct <= 0 {
		maxPct = m.limits.MaxPositionSizePct
	}
	size := 1.0 + (confidence-0.5)*8
	size = math.Max(1.0, math.Min(size, maxPct))
	return math.Round(size*10) / 10
}

// LeverageFor maps confidence onto three leverage bands: roughly 1-3x below
// 0.70, 4-6x up to 0.85, 7-10x above. Clamped to [1, maxLev].
func (m *Manager) LeverageFor(confidence float64, maxLev int) int {
	if maxLev <= 0 {
		maxLev = m.limits.MaxLeverage
	}
	if math.IsNaN(confidence) {
		return 1
	}
	var lev int
	switch {
	case confidence >= 0.85:
		lev = 7 + int(math.Floor((confidence-0.85)*20))
	case confidence >= 0.70:
		lev = 4 + int(math.Floor((confidence-0.70)*13))
	default:
		lev = 1 + int(math.Floor((confidence-0.60)*20))
	}
	if lev < 1 {
		lev = 1
	}
	if lev > maxLev {
		lev = maxLev
	}
	return lev
}

// RiskAdjustedParams produces the full parameter set for a proposed trade:
// base sizing from confidence, then exposure de-risking and a volatility
// adjustment on top.
func (m *Manager) RiskAdjustedParams(confidence, currentExposurePct float64, vol Volatility) Params {
	p := Params{
		Leverage:        m.LeverageFor(confidence, 0),
		PositionSizePct: 1.0 + math.Max(confidence-0.5, 0)*8,
		StopLossPct:     m.limits.DefaultStopLossPct,
		TakeProfitPct:   m.limits.DefaultTakeProfitPct,
	}
	p.PositionSizePct = math.Round(math.Min(p.PositionSizePct, m.limits.MaxPositionSizePct)*10) / 10

	// Exposure de-risking: the more capital already at work, the less a new
	// trade is allowed to add.
	switch {
	case currentExposurePct > 25:
		if p.Leverage > 5 {
			p.Leverage = 5
		}
		if p.PositionSizePct > 2.0 {
			p.PositionSizePct = 2.0
		}
	case currentExposurePct > 20:
		if p.Leverage > 7 {
			p.Leverage = 7
		}
	}

	switch vol {
	case VolHigh:
		p.StopLossPct = 2.0
		p.TakeProfitPct = 7.0
		p.Leverage -= 2
	case VolLow:
		p.StopLossPct = 4.0
		p.TakeProfitPct = 4.0
	}
	if p.Leverage < 1 {
		p.Leverage = 1
	}
	return p
}

// ValidateTrade runs leverage, size, exposure and confidence checks in
// order, short-circuiting on the first failure. Failures are expected
// control flow, so they come back as (false, reason) rather than errors.
func (m *Manager) ValidateTrade(leverage int, sizePct, confidence, currentExposurePct, availableBalance float64) (bool, string) {
	if !m.CheckLeverage(leverage) {
		return false, fmt.Sprintf("leverage %dx outside allowed range [1, %d]", leverage, m.limits.MaxLeverage)
	}
	if !m.CheckPositionSize(sizePct, availableBalance) {
		return false, fmt.Sprintf("position size %.2f%% invalid: must be in (0, %.2f%%] and worth at least $%.0f",
			sizePct, m.limits.MaxPositionSizePct, m.limits.MinOrderUSD)
	}
	if !m.CheckTotalExposure(sizePct, currentExposurePct) {
		return false, fmt.Sprintf("total exposure %.2f%% would exceed limit %.2f%%",
			sizePct+currentExposurePct, m.limits.MaxTotalExposurePct)
	}
	if !m.CheckConfidence(confidence) {
		return false, fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, m.limits.MinConfidence)
	}
	return true, "all risk checks passed"
}

// ShouldClosePosition reports whether the current price breached the stop
// or target. Long positions close at current <= stop or current >= target;
// shorts invert both. An empty reason means the position stays open.
func ShouldClosePosition(currentPrice, entryPrice float64, dir Direction, stopLoss, takeProfit float64) (bool, string) {
	if currentPrice <= 0 || entryPrice <= 0 || !dir.Valid() {
		return false, ""
	}
	switch dir {
	case Long:
		if stopLoss > 0 && decimalLTE(currentPrice, stopLoss) {
			return true, CloseReasonStopLoss
		}
		if takeProfit > 0 && decimalGTE(currentPrice, takeProfit) {
			return true, CloseReasonTakeProfit
		}
	case Short:
		if stopLoss > 0 && decimalGTE(currentPrice, stopLoss) {
			return true, CloseReasonStopLoss
		}
		if takeProfit > 0 && decimalLTE(currentPrice, takeProfit) {
			return true, CloseReasonTakeProfit
		}
	}
	return false, ""
}
