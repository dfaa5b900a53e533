// Package paper provides a simulated account that doubles as portfolio
// snapshot source and execution sink, so the agent can run full cycles
// without any order connectivity.
package paper

import (
	"context"
	"math"
	"sync"

	"coinpilot/internal/decision"
	"coinpilot/internal/logger"
	"coinpilot/internal/portfolio"
)

// Account tracks simulated equity and positions. Execute applies sanitized
// decisions to the book; Snapshot reports the resulting state.
type Account struct {
	mu        sync.RWMutex
	balance   float64
	positions map[string]float64 // symbol -> market value USD
}

func NewAccount(startingBalanceUSD float64) *Account {
	if startingBalanceUSD < 0 {
		startingBalanceUSD = 0
	}
	return &Account{
		balance:   startingBalanceUSD,
		positions: make(map[string]float64),
	}
}

// Snapshot implements engine.PortfolioService.
func (a *Account) Snapshot(_ context.Context) (portfolio.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap := portfolio.Snapshot{
		AvailableBalanceUSD: a.balance,
		TotalEquityUSD:      a.balance,
	}
	for sym, value := range a.positions {
		snap.TotalEquityUSD += value
		snap.Positions = append(snap.Positions, portfolio.Position{Symbol: sym, MarketValueUSD: value})
	}
	return snap, nil
}

// Execute implements engine.ExecutionSink by moving balance in and out of
// simulated positions. Fills are assumed instant and frictionless.
func (a *Account) Execute(_ context.Context, traceID string, d decision.Decision) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch d.Action {
	case decision.ActionOpen, decision.ActionIncrease:
		amount := a.balance * d.PositionSizePct / 100
		if amount <= 0 {
			return nil
		}
		a.balance -= amount
		a.positions[d.Symbol] += amount
		logger.Infof("paper[%s]: %s %s $%.2f at %dx", traceID, d.Action, d.Symbol, amount, d.Leverage)
	case decision.ActionDecrease:
		current := a.positions[d.Symbol]
		if current <= 0 {
			return nil
		}
		// No explicit size on a decrease; trim a fifth of the position.
		amount := math.Min(current, current*0.2)
		a.positions[d.Symbol] -= amount
		a.balance += amount
		logger.Infof("paper[%s]: decrease %s by $%.2f", traceID, d.Symbol, amount)
	case decision.ActionClose:
		current := a.positions[d.Symbol]
		if current <= 0 {
			return nil
		}
		delete(a.positions, d.Symbol)
		a.balance += current
		logger.Infof("paper[%s]: close %s releasing $%.2f", traceID, d.Symbol, current)
	}
	return nil
}
