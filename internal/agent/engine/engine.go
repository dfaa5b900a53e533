// Package engine runs one analysis cycle end to end: snapshot the
// portfolio, score every symbol, allocate capital, sanitize the resulting
// decisions and hand them to the execution sink.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"coinpilot/internal/config"
	"coinpilot/internal/decision"
	"coinpilot/internal/logger"
	"coinpilot/internal/market"
	"coinpilot/internal/opportunity"
	"coinpilot/internal/portfolio"
	"coinpilot/internal/risk"
	"coinpilot/internal/strategy"
)

// MarketService supplies the per-cycle signals. Implementations pre-fetch
// over the network; the engine itself never blocks on I/O beyond these
// calls.
type MarketService interface {
	Technical(ctx context.Context, sym string) (market.TechnicalSnapshot, error)
	Sentiment(ctx context.Context) (market.SentimentSnapshot, bool)
	Trending(ctx context.Context, sym string) (market.TrendingSnapshot, bool)
	News(ctx context.Context, sym string) (market.NewsAnalysis, bool)
}

// PortfolioService supplies a fresh equity/balance/position snapshot.
type PortfolioService interface {
	Snapshot(ctx context.Context) (portfolio.Snapshot, error)
}

// ExecutionSink accepts sanitized decisions. Order routing lives behind
// this boundary, outside the core.
type ExecutionSink interface {
	Execute(ctx context.Context, traceID string, d decision.Decision) error
}

// RejectedDecision records a decision the risk chain refused.
type RejectedDecision struct {
	Decision decision.Decision `json:"decision"`
	Reason   string            `json:"reason"`
}

// CycleResult is the full outcome of one analysis cycle.
type CycleResult struct {
	TraceID       string                        `json:"trace_id"`
	StartedAt     time.Time                     `json:"started_at"`
	FinishedAt    time.Time                     `json:"finished_at"`
	Portfolio     portfolio.Snapshot            `json:"portfolio"`
	Opportunities map[string]opportunity.Result `json:"opportunities"`
	Allocation    portfolio.Result              `json:"allocation"`
	Decisions     []decision.Decision           `json:"decisions"`
	Rejected      []RejectedDecision            `json:"rejected,omitempty"`
}

// Params wires the engine's collaborators.
type Params struct {
	Config     *config.Config
	Evaluator  *opportunity.Evaluator
	Allocator  *portfolio.Allocator
	RiskMgr    *risk.Manager
	Sanitizer  *decision.Sanitizer
	Market     MarketService
	Portfolio  PortfolioService
	Sink       ExecutionSink
	Strategies *strategy.Registry
}

type Engine struct {
	cfg        *config.Config
	evaluator  *opportunity.Evaluator
	allocator  *portfolio.Allocator
	riskMgr    *risk.Manager
	sanitizer  *decision.Sanitizer
	market     MarketService
	portfolio  PortfolioService
	sink       ExecutionSink
	strategies *strategy.Registry

	mu   sync.RWMutex
	last *CycleResult
}

func NewEngine(p Params) *Engine {
	return &Engine{
		cfg:        p.Config,
		evaluator:  p.Evaluator,
		allocator:  p.Allocator,
		riskMgr:    p.RiskMgr,
		sanitizer:  p.Sanitizer,
		market:     p.Market,
		portfolio:  p.Portfolio,
		sink:       p.Sink,
		strategies: p.Strategies,
	}
}

// LastCycle returns the most recent completed cycle, if any.
func (e *Engine) LastCycle() (*CycleResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.last != nil
}

// RunCycle evaluates all symbols, allocates and executes. Evaluation runs
// per symbol in parallel; the allocator sees only the completed score set,
// so arrival order cannot affect the result.
func (e *Engine) RunCycle(ctx context.Context, symbols []string) (*CycleResult, error) {
	if e.market == nil || e.portfolio == nil {
		return nil, fmt.Errorf("engine requires market and portfolio services")
	}
	result := &CycleResult{
		TraceID:   uuid.NewString(),
		StartedAt: time.Now(),
	}

	snap, err := e.portfolio.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio snapshot failed: %w", err)
	}
	result.Portfolio = snap

	result.Opportunities = e.evaluateAll(ctx, symbols)
	result.Allocation = e.allocator.CalculateAllocation(snap, result.Opportunities, e.activeOverride())

	exposurePct := currentExposurePct(snap)
	e.executeAllocation(ctx, result, exposurePct)

	result.FinishedAt = time.Now()
	e.mu.Lock()
	e.last = result
	e.mu.Unlock()

	logger.Infof("cycle %s done: %d symbols, %d decisions, %d rejected, target $%.2f",
		result.TraceID, len(result.Opportunities), len(result.Decisions), len(result.Rejected),
		result.Allocation.Summary.TotalTargetUSD)
	return result, nil
}

// evaluateAll scores every symbol concurrently. A symbol whose feeds fail
// is still scored with whatever inputs were available.
func (e *Engine) evaluateAll(ctx context.Context, symbols []string) map[string]opportunity.Result {
	results := make(map[string]opportunity.Result, len(symbols))
	var mu sync.Mutex

	sentiment, sentimentOK := e.market.Sentiment(ctx)

	var eg errgroup.Group
	for _, sym := range symbols {
		sym := sym
		eg.Go(func() error {
			in := opportunity.Inputs{}
			if sentimentOK {
				s := sentiment
				in.Sentiment = &s
			}
			if tech, err := e.market.Technical(ctx, sym); err != nil {
				logger.Warnf("technical snapshot failed for %s: %v", sym, err)
			} else {
				in.Technical = &tech
			}
			if trend, ok := e.market.Trending(ctx, sym); ok {
				in.Trending = &trend
			}
			if news, ok := e.market.News(ctx, sym); ok {
				in.News = &news
			}
			res := e.evaluator.Evaluate(sym, in)
			mu.Lock()
			results[sym] = res
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (e *Engine) activeOverride() *strategy.Override {
	if e.strategies == nil || e.cfg == nil {
		return nil
	}
	id := e.cfg.Strategy.Active
	if id == "" {
		return nil
	}
	o, ok := e.strategies.Override(id)
	if !ok {
		logger.Warnf("active strategy %q not found in registry", id)
		return nil
	}
	return &o
}

// executeAllocation turns allocation entries into sanitized decisions and
// feeds them to the sink. Entries are processed in symbol order so a cycle
// is reproducible.
func (e *Engine) executeAllocation(ctx context.Context, result *CycleResult, exposurePct float64) {
	entries := make([]portfolio.Entry, 0, len(result.Allocation.Allocations))
	for _, entry := range result.Allocation.Allocations {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })

	for _, entry := range entries {
		d, ok := e.decisionFor(entry, result)
		if !ok {
			continue
		}
		d = e.sanitizer.AdjustForHighExposure(d, exposurePct)
		sanitized, accepted, reason := e.sanitizer.Sanitize(d, exposurePct, result.Portfolio.AvailableBalanceUSD)
		if !accepted {
			result.Rejected = append(result.Rejected, RejectedDecision{Decision: sanitized, Reason: reason})
			continue
		}
		if sanitized.Action == decision.ActionHold {
			continue
		}
		result.Decisions = append(result.Decisions, sanitized)
		if e.sink == nil {
			continue
		}
		if err := e.sink.Execute(ctx, result.TraceID, sanitized); err != nil {
			logger.Errorf("execution failed for %s %s: %v", sanitized.Action, sanitized.Symbol, err)
		}
	}
}

// decisionFor maps one allocation entry onto a trade decision, sized by the
// target delta and parameterized by the risk manager.
func (e *Engine) decisionFor(entry portfolio.Entry, result *CycleResult) (decision.Decision, bool) {
	equity := result.Portfolio.TotalEquityUSD
	score, scored := result.Opportunities[entry.Symbol]

	switch entry.Action {
	case portfolio.ActionClose:
		return decision.Decision{
			Action:    decision.ActionClose,
			Symbol:    entry.Symbol,
			Direction: risk.Long,
			Reasoning: "allocation target dropped to zero",
		}, true
	case portfolio.ActionOpen, portfolio.ActionIncrease:
		if equity <= 0 || !scored {
			return decision.Decision{}, false
		}
		confidence := score.Score / 100
		params := e.riskMgr.RiskAdjustedParams(confidence, currentExposurePct(result.Portfolio), volRegime(score))
		sizePct := (entry.TargetUSD - entry.CurrentUSD) / equity * 100
		if sizePct > params.PositionSizePct {
			sizePct = params.PositionSizePct
		}
		if sizePct <= 0 {
			return decision.Decision{}, false
		}
		action := decision.ActionOpen
		if entry.Action == portfolio.ActionIncrease {
			action = decision.ActionIncrease
		}
		return decision.Decision{
			Action:          action,
			Symbol:          entry.Symbol,
			Direction:       risk.Long,
			Leverage:        params.Leverage,
			PositionSizePct: math.Round(sizePct*10) / 10,
			StopLossPct:     params.StopLossPct,
			TakeProfitPct:   params.TakeProfitPct,
			Confidence:      confidence,
			Reasoning:       fmt.Sprintf("opportunity score %.1f (%s), tier %s", score.Score, score.Level, entry.Tier),
		}, true
	case portfolio.ActionDecrease:
		return decision.Decision{
			Action:     decision.ActionDecrease,
			Symbol:     entry.Symbol,
			Direction:  risk.Long,
			Confidence: score.Score / 100,
			Reasoning:  "allocation target reduced",
		}, true
	default:
		return decision.Decision{}, false
	}
}

// volRegime buckets a symbol's volatility from its criteria flags. Without
// technical data the regime stays normal.
func volRegime(res opportunity.Result) risk.Volatility {
	if controlled, ok := res.CriteriaMet[opportunity.CriterionVolatilityControlled]; ok && !controlled {
		return risk.VolHigh
	}
	return risk.VolNormal
}

func currentExposurePct(snap portfolio.Snapshot) float64 {
	if snap.TotalEquityUSD <= 0 {
		return 0
	}
	var total float64
	for _, p := range snap.Positions {
		total += math.Abs(p.MarketValueUSD)
	}
	return total / snap.TotalEquityUSD * 100
}
