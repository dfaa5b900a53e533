package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"coinpilot/internal/config"
	"coinpilot/internal/decision"
	"coinpilot/internal/market"
	"coinpilot/internal/opportunity"
	"coinpilot/internal/portfolio"
	"coinpilot/internal/risk"
)

type stubMarket struct {
	technical   map[string]market.TechnicalSnapshot
	sentiment   *market.SentimentSnapshot
	trending    map[string]market.TrendingSnapshot
	techFailure error
}

func (s *stubMarket) Technical(_ context.Context, sym string) (market.TechnicalSnapshot, error) {
	if s.techFailure != nil {
		return market.TechnicalSnapshot{}, s.techFailure
	}
	snap, ok := s.technical[sym]
	if !ok {
		return market.TechnicalSnapshot{}, errors.New("no data")
	}
	return snap, nil
}

func (s *stubMarket) Sentiment(_ context.Context) (market.SentimentSnapshot, bool) {
	if s.sentiment == nil {
		return market.SentimentSnapshot{}, false
	}
	return *s.sentiment, true
}

func (s *stubMarket) Trending(_ context.Context, sym string) (market.TrendingSnapshot, bool) {
	t, ok := s.trending[sym]
	return t, ok
}

func (s *stubMarket) News(_ context.Context, _ string) (market.NewsAnalysis, bool) {
	return market.NewsAnalysis{}, false
}

type stubPortfolio struct {
	snap portfolio.Snapshot
	err  error
}

func (s *stubPortfolio) Snapshot(_ context.Context) (portfolio.Snapshot, error) {
	return s.snap, s.err
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Execute(ctx context.Context, traceID string, d decision.Decision) error {
	args := m.Called(ctx, traceID, d)
	return args.Error(0)
}

func bullishSnapshot() market.TechnicalSnapshot {
	return market.TechnicalSnapshot{
		RSI: 25, MACD: 2, MACDSignal: 1, EMALong: 100, Price: 110, ATRPct: 3,
	}
}

func newTestEngine(mkt MarketService, pf PortfolioService, sink ExecutionSink) *Engine {
	cfg := config.Default()
	riskMgr := risk.NewManager(risk.DefaultLimits())
	return NewEngine(Params{
		Config:    cfg,
		Evaluator: opportunity.NewEvaluator(opportunity.DefaultWeights(), 10_000_000, 15),
		Allocator: portfolio.NewAllocator(portfolio.DefaultPolicy()),
		RiskMgr:   riskMgr,
		Sanitizer: decision.NewSanitizer(riskMgr, decision.ExchangeTraits{
			Name: "hyperliquid", SupportsMargin: true, MaxLeverage: 10,
		}),
		Market:    mkt,
		Portfolio: pf,
		Sink:      sink,
	})
}

func TestRunCycleOpensStrongOpportunities(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	mkt := &stubMarket{
		technical: map[string]market.TechnicalSnapshot{
			"BTCUSDT": bullishSnapshot(),
			"ETHUSDT": bullishSnapshot(),
			"SOLUSDT": bullishSnapshot(),
		},
		sentiment: &market.SentimentSnapshot{Label: market.SentimentExtremeFear, Score: 12},
		trending: map[string]market.TrendingSnapshot{
			"BTCUSDT": {Rank: 1, VolumeUSD: 600_000_000, Change24hPct: 12},
			"ETHUSDT": {Rank: 2, VolumeUSD: 600_000_000, Change24hPct: 12},
			"SOLUSDT": {Rank: 5, VolumeUSD: 600_000_000, Change24hPct: 12},
		},
	}
	pf := &stubPortfolio{snap: portfolio.Snapshot{TotalEquityUSD: 10000, AvailableBalanceUSD: 10000}}
	sink := &mockSink{}
	sink.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	eng := newTestEngine(mkt, pf, sink)
	result, err := eng.RunCycle(context.Background(), symbols)
	require.NoError(t, err)

	assert.NotEmpty(t, result.TraceID)
	assert.Len(t, result.Opportunities, 3)
	for sym, res := range result.Opportunities {
		assert.Equal(t, opportunity.LevelExcellent, res.Level, sym)
	}
	require.Len(t, result.Decisions, 3)
	for _, d := range result.Decisions {
		assert.Equal(t, decision.ActionOpen, d.Action)
		assert.Equal(t, risk.Long, d.Direction)
		assert.Greater(t, d.PositionSizePct, 0.0)
		assert.GreaterOrEqual(t, d.Leverage, 1)
	}
	assert.Empty(t, result.Rejected)
	sink.AssertNumberOfCalls(t, "Execute", 3)

	last, ok := eng.LastCycle()
	require.True(t, ok)
	assert.Equal(t, result.TraceID, last.TraceID)
}

func TestRunCycleRejectsLowConfidence(t *testing.T) {
	// Weak technicals with no supporting feeds keep the composite score,
	// and therefore the confidence proxy, under the 0.6 threshold.
	weak := market.TechnicalSnapshot{RSI: 50, MACD: 1, MACDSignal: 2, ATRPct: 3}
	mkt := &stubMarket{
		technical: map[string]market.TechnicalSnapshot{
			"BTCUSDT": weak, "ETHUSDT": weak, "SOLUSDT": weak,
		},
	}
	pf := &stubPortfolio{snap: portfolio.Snapshot{TotalEquityUSD: 10000, AvailableBalanceUSD: 10000}}
	sink := &mockSink{}

	eng := newTestEngine(mkt, pf, sink)
	result, err := eng.RunCycle(context.Background(), []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	require.NoError(t, err)

	assert.Empty(t, result.Decisions)
	require.Len(t, result.Rejected, 3)
	for _, rej := range result.Rejected {
		assert.Contains(t, rej.Reason, "confidence")
	}
	sink.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCycleClosesAbandonedPositions(t *testing.T) {
	mkt := &stubMarket{
		technical: map[string]market.TechnicalSnapshot{
			"BTCUSDT": bullishSnapshot(),
			"ETHUSDT": bullishSnapshot(),
			"SOLUSDT": bullishSnapshot(),
		},
		sentiment: &market.SentimentSnapshot{Label: market.SentimentExtremeFear},
		trending: map[string]market.TrendingSnapshot{
			"BTCUSDT": {Rank: 1, VolumeUSD: 600_000_000},
			"ETHUSDT": {Rank: 2, VolumeUSD: 600_000_000},
			"SOLUSDT": {Rank: 5, VolumeUSD: 600_000_000},
		},
	}
	pf := &stubPortfolio{snap: portfolio.Snapshot{
		TotalEquityUSD:      10000,
		AvailableBalanceUSD: 9500,
		Positions:           []portfolio.Position{{Symbol: "XRPUSDT", MarketValueUSD: 500}},
	}}
	sink := &mockSink{}
	sink.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	eng := newTestEngine(mkt, pf, sink)
	result, err := eng.RunCycle(context.Background(), []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	require.NoError(t, err)

	var closed []string
	for _, d := range result.Decisions {
		if d.Action == decision.ActionClose {
			closed = append(closed, d.Symbol)
		}
	}
	assert.Equal(t, []string{"XRPUSDT"}, closed)
}

func TestRunCyclePortfolioFailure(t *testing.T) {
	mkt := &stubMarket{}
	pf := &stubPortfolio{err: errors.New("exchange unreachable")}

	eng := newTestEngine(mkt, pf, nil)
	_, err := eng.RunCycle(context.Background(), []string{"BTCUSDT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio snapshot")
}

func TestRunCycleSurvivesFeedFailures(t *testing.T) {
	mkt := &stubMarket{techFailure: errors.New("upstream 502")}
	pf := &stubPortfolio{snap: portfolio.Snapshot{TotalEquityUSD: 10000, AvailableBalanceUSD: 10000}}

	eng := newTestEngine(mkt, pf, nil)
	result, err := eng.RunCycle(context.Background(), []string{"BTCUSDT"})
	require.NoError(t, err)

	// scored neutral from the absence of inputs, not dropped
	res, ok := result.Opportunities["BTCUSDT"]
	require.True(t, ok)
	assert.Equal(t, opportunity.LevelModerate, res.Level)
}
