// Package portfolio distributes equity across a core/opportunistic tier
// structure from opportunity scores, under per-asset and aggregate
// exposure caps.
package portfolio

import (
	"math"
	"sort"
	"strings"

	"coinpilot/internal/opportunity"
	"coinpilot/internal/strategy"
)

// Tier of an allocation entry.
type Tier string

const (
	TierCore          Tier = "core"
	TierOpportunistic Tier = "opportunistic"
)

// Action classifies the delta between current and target exposure.
type Action string

const (
	ActionOpen     Action = "open"
	ActionClose    Action = "close"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
	ActionHold     Action = "hold"
)

// Position is one open position from the portfolio snapshot. Short
// exposure is accounted by magnitude here.
type Position struct {
	Symbol         string  `json:"symbol"`
	MarketValueUSD float64 `json:"market_value_usd"`
}

// Snapshot is the per-cycle portfolio state. The allocator never mutates it.
type Snapshot struct {
	TotalEquityUSD      float64    `json:"total_equity_usd"`
	AvailableBalanceUSD float64    `json:"available_balance_usd"`
	Positions           []Position `json:"positions"`
}

// Entry is the per-symbol allocation outcome.
type Entry struct {
	Symbol     string  `json:"symbol"`
	Tier       Tier    `json:"tier"`
	CurrentUSD float64 `json:"current_usd"`
	TargetUSD  float64 `json:"target_usd"`
	Action     Action  `json:"action"`
}

// Summary aggregates the allocation result.
type Summary struct {
	TotalTargetUSD   float64 `json:"total_target_usd"`
	CoreUSD          float64 `json:"core_allocation_usd"`
	OpportunisticUSD float64 `json:"opportunistic_allocation_usd"`
}

// Result maps symbols to entries plus the summary block.
type Result struct {
	Allocations map[string]Entry `json:"allocations"`
	Summary     Summary          `json:"summary"`
}

// Policy is the allocator configuration. Percent fields are 0-100 values
// relative to total equity. MaxPositionSizePct of zero disables the
// per-entry cap; strategy overrides may set it for a cycle.
type Policy struct {
	CoreSymbols         []string
	CorePct             float64
	OpportunisticPct    float64
	MinOpportunityScore float64
	MaxOpportunistic    int
	MaxAltCoinPct       float64
	MaxTotalExposurePct float64
	MaxPositionSizePct  float64
}

// DefaultPolicy matches the shipped configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		CoreSymbols:         []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		CorePct:             65,
		OpportunisticPct:    25,
		MinOpportunityScore: 60,
		MaxOpportunistic:    3,
		MaxAltCoinPct:       10,
		MaxTotalExposurePct: 100,
	}
}

const (
	// A symbol scoring exactly this gets the unweighted equal core share.
	coreBaselineScore = 70.0
	// Relative delta below which a position is held rather than resized.
	rebalanceThreshold = 0.05

	epsilon = 1e-9
)

// Allocator is stateless apart from its immutable policy.
type Allocator struct {
	policy Policy
}

func NewAllocator(policy Policy) *Allocator {
	if len(policy.CoreSymbols) == 0 {
		policy.CoreSymbols = DefaultPolicy().CoreSymbols
	}
	if policy.MaxTotalExposurePct <= 0 {
		policy.MaxTotalExposurePct = DefaultPolicy().MaxTotalExposurePct
	}
	return &Allocator{policy: policy}
}

// CalculateAllocation distributes equity across tiers from the given
// opportunity scores. An active strategy override may tighten the exposure
// and position-size caps for this cycle. Zero equity, empty score maps and
// all-zero scores all resolve to zero-valued results without error.
func (a *Allocator) CalculateAllocation(snap Snapshot, scores map[string]opportunity.Result, active *strategy.Override) Result {
	result := Result{Allocations: make(map[string]Entry)}
	if len(scores) == 0 {
		return result
	}
	equity := math.Max(snap.TotalEquityUSD, 0)

	coreSet := make(map[string]bool, len(a.policy.CoreSymbols))
	for _, s := range a.policy.CoreSymbols {
		coreSet[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	targets := make(map[string]float64)
	tiers := make(map[string]Tier)

	a.allocateCore(equity, scores, coreSet, targets, tiers)
	a.allocateOpportunistic(equity, scores, coreSet, targets, tiers)
	a.applyCaps(equity, active, targets)

	current := currentBySymbol(snap.Positions)
	for sym := range current {
		if _, ok := targets[sym]; !ok {
			targets[sym] = 0
			tiers[sym] = tierFor(sym, coreSet)
		}
	}

	for sym, target := range targets {
		cur := current[sym]
		entry := Entry{
			Symbol:     sym,
			Tier:       tiers[sym],
			CurrentUSD: cur,
			TargetUSD:  target,
			Action:     classify(cur, target),
		}
		result.Allocations[sym] = entry
		result.Summary.TotalTargetUSD += target
		switch entry.Tier {
		case TierCore:
			result.Summary.CoreUSD += target
		case TierOpportunistic:
			result.Summary.OpportunisticUSD += target
		}
	}
	return result
}

// allocateCore splits the core budget proportional to score/70 multipliers,
// then normalizes so the budget is never exceeded.
func (a *Allocator) allocateCore(equity float64, scores map[string]opportunity.Result, coreSet map[string]bool, targets map[string]float64, tiers map[string]Tier) {
	if len(coreSet) == 0 || a.policy.CorePct <= 0 {
		return
	}
	budget := equity * a.policy.CorePct / 100
	equalShare := budget / float64(len(coreSet))

	shares := make(map[string]float64, len(coreSet))
	var total float64
	for sym := range coreSet {
		score := 50.0 // neutral when the evaluator had nothing for a core symbol
		if res, ok := scores[sym]; ok {
			score = res.Score
		}
		share := equalShare * score / coreBaselineScore
		if share < 0 {
			share = 0
		}
		shares[sym] = share
		total += share
	}
	if total > budget && total > epsilon {
		scale := budget / total
		for sym := range shares {
			shares[sym] *= scale
		}
	}
	for sym, share := range shares {
		targets[sym] = share
		tiers[sym] = TierCore
	}
}

// allocateOpportunistic filters and ranks non-core candidates, then splits
// the opportunistic budget proportional to score with a per-asset cap.
func (a *Allocator) allocateOpportunistic(equity float64, scores map[string]opportunity.Result, coreSet map[string]bool, targets map[string]float64, tiers map[string]Tier) {
	if a.policy.OpportunisticPct <= 0 || a.policy.MaxOpportunistic <= 0 {
		return
	}
	candidates := make([]opportunity.Result, 0, len(scores))
	for sym, res := range scores {
		if coreSet[strings.ToUpper(sym)] {
			continue
		}
		if res.Score < a.policy.MinOpportunityScore {
			continue
		}
		if quality, ok := res.CriteriaMet[opportunity.CriterionOverallQuality]; ok && !quality {
			continue
		}
		res.Symbol = sym
		candidates = append(candidates, res)
	}
	if len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	if len(candidates) > a.policy.MaxOpportunistic {
		candidates = candidates[:a.policy.MaxOpportunistic]
	}

	budget := equity * a.policy.OpportunisticPct / 100
	perAssetCap := equity * a.policy.MaxAltCoinPct / 100
	var totalScore float64
	for _, c := range candidates {
		totalScore += c.Score
	}
	if totalScore <= epsilon {
		return
	}
	for _, c := range candidates {
		target := budget * c.Score / totalScore
		if perAssetCap > 0 && target > perAssetCap {
			target = perAssetCap
		}
		targets[c.Symbol] = target
		tiers[c.Symbol] = TierOpportunistic
	}
}

// applyCaps enforces the per-entry cap and rescales everything down when
// the aggregate exceeds total_equity x effective max exposure.
func (a *Allocator) applyCaps(equity float64, active *strategy.Override, targets map[string]float64) {
	maxExposurePct := a.policy.MaxTotalExposurePct
	maxPositionPct := a.policy.MaxPositionSizePct
	if active != nil {
		if active.MaxTotalExposurePct > 0 {
			maxExposurePct = active.MaxTotalExposurePct
		}
		if active.MaxPositionSizePct > 0 {
			maxPositionPct = active.MaxPositionSizePct
		}
	}
	if maxPositionPct > 0 {
		perEntryCap := equity * maxPositionPct / 100
		for sym, t := range targets {
			if t > perEntryCap {
				targets[sym] = perEntryCap
			}
		}
	}
	maxTotal := equity * maxExposurePct / 100
	var total float64
	for _, t := range targets {
		total += t
	}
	if total > maxTotal && total > epsilon {
		scale := maxTotal / total
		for sym := range targets {
			targets[sym] *= scale
		}
	}
}

func currentBySymbol(positions []Position) map[string]float64 {
	out := make(map[string]float64, len(positions))
	for _, p := range positions {
		sym := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if sym == "" {
			continue
		}
		out[sym] += math.Abs(p.MarketValueUSD)
	}
	return out
}

// classify maps the current/target delta onto an action. Zero current with
// a nonzero target is always OPEN; the relative-delta test only applies to
// live positions, so the denominator can never be zero.
func classify(current, target float64) Action {
	switch {
	case current <= epsilon && target > epsilon:
		return ActionOpen
	case current > epsilon && target <= epsilon:
		return ActionClose
	case current <= epsilon:
		return ActionHold
	}
	delta := math.Abs(target-current) / math.Max(current, epsilon)
	switch {
	case delta > rebalanceThreshold && target > current:
		return ActionIncrease
	case delta > rebalanceThreshold && target < current:
		return ActionDecrease
	default:
		return ActionHold
	}
}

func tierFor(sym string, coreSet map[string]bool) Tier {
	if coreSet[strings.ToUpper(sym)] {
		return TierCore
	}
	return TierOpportunistic
}
