package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coinpilot/internal/market"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(DefaultWeights(), 10_000_000, 15.0)
}

func floatPtr(v float64) *float64 { return &v }

func TestEvaluateMissingInputs(t *testing.T) {
	e := newTestEvaluator()

	t.Run("all inputs absent scores neutral", func(t *testing.T) {
		res := e.Evaluate("BTCUSDT", Inputs{})
		assert.Equal(t, "BTCUSDT", res.Symbol)
		assert.InDelta(t, 50.0, res.Score, 1e-9)
		assert.Equal(t, LevelModerate, res.Level)
		assert.False(t, res.CriteriaMet[CriterionMinLiquidity])
		assert.False(t, res.CriteriaMet[CriterionVolatilityControlled])
		assert.False(t, res.CriteriaMet[CriterionOverallQuality])
	})

	t.Run("absent components drop out of the weighted sum", func(t *testing.T) {
		res := e.Evaluate("BTCUSDT", Inputs{
			Sentiment: &market.SentimentSnapshot{Label: market.SentimentExtremeFear, Score: 10},
		})
		// sentiment 90 at weight 0.15 plus neutral trending 50 at 0.20,
		// renormalized over 0.35.
		want := (0.15*90 + 0.20*50) / 0.35
		assert.InDelta(t, want, res.Score, 1e-9)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		res := e.Evaluate("BTCUSDT", Inputs{
			Technical: &market.TechnicalSnapshot{RSI: 25, MACD: 2, MACDSignal: 1, EMALong: 100, Price: 110, ATRPct: 2},
			Sentiment: &market.SentimentSnapshot{Label: market.SentimentExtremeFear},
			Trending:  &market.TrendingSnapshot{Rank: 1, VolumeUSD: 600_000_000, Change24hPct: 12},
			News:      &market.NewsAnalysis{SentimentScore: 1, Confidence: 1},
			VolumeUSD: floatPtr(600_000_000),
		})
		assert.LessOrEqual(t, res.Score, 100.0)
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.Equal(t, LevelExcellent, res.Level)
	})
}

func TestEvaluateCriteria(t *testing.T) {
	e := newTestEvaluator()

	t.Run("thin liquidity fails the gate", func(t *testing.T) {
		res := e.Evaluate("XYZUSDT", Inputs{
			Technical: &market.TechnicalSnapshot{ATRPct: 3},
			VolumeUSD: floatPtr(5_000_000),
		})
		assert.False(t, res.CriteriaMet[CriterionMinLiquidity])
		assert.True(t, res.CriteriaMet[CriterionVolatilityControlled])
		assert.False(t, res.CriteriaMet[CriterionOverallQuality])
	})

	t.Run("excessive ATR fails the gate", func(t *testing.T) {
		res := e.Evaluate("XYZUSDT", Inputs{
			Technical: &market.TechnicalSnapshot{ATRPct: 20},
			VolumeUSD: floatPtr(50_000_000),
		})
		assert.True(t, res.CriteriaMet[CriterionMinLiquidity])
		assert.False(t, res.CriteriaMet[CriterionVolatilityControlled])
		assert.False(t, res.CriteriaMet[CriterionOverallQuality])
	})

	t.Run("both gates met marks overall quality", func(t *testing.T) {
		res := e.Evaluate("BTCUSDT", Inputs{
			Technical: &market.TechnicalSnapshot{ATRPct: 3},
			VolumeUSD: floatPtr(50_000_000),
		})
		assert.True(t, res.CriteriaMet[CriterionOverallQuality])
	})

	t.Run("trending volume backs liquidity when no override", func(t *testing.T) {
		res := e.Evaluate("BTCUSDT", Inputs{
			Technical: &market.TechnicalSnapshot{ATRPct: 3},
			Trending:  &market.TrendingSnapshot{Rank: 1, VolumeUSD: 80_000_000},
		})
		assert.True(t, res.CriteriaMet[CriterionMinLiquidity])
	})
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Level
	}{
		{0, LevelPoor},
		{29.9, LevelPoor},
		{30, LevelModerate},
		{59.9, LevelModerate},
		{60, LevelGood},
		{74.9, LevelGood},
		{75, LevelExcellent},
		{100, LevelExcellent},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levelFor(tc.score), "score %.1f", tc.score)
	}
}

func TestTechnicalScore(t *testing.T) {
	t.Run("nil scores neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, technicalScore(nil))
	})

	t.Run("bullish alignment maxes out", func(t *testing.T) {
		s := technicalScore(&market.TechnicalSnapshot{
			RSI: 25, MACD: 2, MACDSignal: 1, EMALong: 100, Price: 110, ATRPct: 2,
		})
		assert.Equal(t, 100.0, s)
	})

	t.Run("bearish alignment bottoms out", func(t *testing.T) {
		s := technicalScore(&market.TechnicalSnapshot{
			RSI: 75, MACD: 1, MACDSignal: 2, EMALong: 100, Price: 90, ATRPct: 2,
		})
		assert.Equal(t, 0.0, s)
	})

	t.Run("oversized ATR penalized", func(t *testing.T) {
		calm := technicalScore(&market.TechnicalSnapshot{MACD: 2, MACDSignal: 1, ATRPct: 2})
		wild := technicalScore(&market.TechnicalSnapshot{MACD: 2, MACDSignal: 1, ATRPct: 20})
		assert.Equal(t, calm-20, wild)
	})
}

func TestSentimentScore(t *testing.T) {
	cases := []struct {
		label market.SentimentLabel
		want  float64
	}{
		{market.SentimentExtremeFear, 90},
		{market.SentimentFear, 75},
		{market.SentimentNeutral, 50},
		{market.SentimentGreed, 25},
		{market.SentimentExtremeGreed, 10},
	}
	for _, tc := range cases {
		got := sentimentScore(&market.SentimentSnapshot{Label: tc.label})
		assert.Equal(t, tc.want, got, "label %s", tc.label)
	}
	assert.Equal(t, 50.0, sentimentScore(nil))
}

func TestTrendingScore(t *testing.T) {
	assert.Equal(t, 50.0, trendingScore(nil))
	assert.Equal(t, 50.0, trendingScore(&market.TrendingSnapshot{Rank: 0}))
	assert.Equal(t, 85.0, trendingScore(&market.TrendingSnapshot{Rank: 3, VolumeUSD: 600_000_000, Change24hPct: 12}))
	assert.Equal(t, 72.0, trendingScore(&market.TrendingSnapshot{Rank: 3, VolumeUSD: 600_000_000, Change24hPct: 2}))
	assert.Equal(t, 60.0, trendingScore(&market.TrendingSnapshot{Rank: 8, VolumeUSD: 50_000_000}))
	assert.Equal(t, 55.0, trendingScore(&market.TrendingSnapshot{Rank: 20, VolumeUSD: 150_000_000}))
	assert.Equal(t, 45.0, trendingScore(&market.TrendingSnapshot{Rank: 20, VolumeUSD: 50_000_000}))
	assert.Equal(t, 35.0, trendingScore(&market.TrendingSnapshot{Rank: 80}))
}

func TestLiquidityScore(t *testing.T) {
	assert.Equal(t, 100.0, liquidityScore(200_000_000))
	assert.Equal(t, 70.0, liquidityScore(50_000_000))
	assert.InDelta(t, 84.5, liquidityScore(125_000_000), 1e-9)
	assert.Equal(t, 40.0, liquidityScore(10_000_000))
	assert.InDelta(t, 54.5, liquidityScore(30_000_000), 1e-9)
	assert.InDelta(t, 15.0, liquidityScore(5_000_000), 1e-9)
	assert.Equal(t, 0.0, liquidityScore(0))
}

func TestVolatilityScore(t *testing.T) {
	assert.Equal(t, 50.0, volatilityScore(nil))
	assert.Equal(t, 50.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 0}))
	assert.Equal(t, 90.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 3}))
	assert.Equal(t, 84.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 5}))
	assert.Equal(t, 50.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 10}))
	assert.InDelta(t, 40.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 12.5}), 1e-9)
	assert.Equal(t, 30.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 15}))
	assert.Equal(t, 20.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 20}))
	assert.Equal(t, 0.0, volatilityScore(&market.TechnicalSnapshot{ATRPct: 50}))
}

func TestNewsScore(t *testing.T) {
	assert.Equal(t, 50.0, newsScore(nil))
	assert.Equal(t, 100.0, newsScore(&market.NewsAnalysis{SentimentScore: 1, Confidence: 1}))
	assert.Equal(t, 0.0, newsScore(&market.NewsAnalysis{SentimentScore: -1, Confidence: 1}))
	assert.InDelta(t, 62.5, newsScore(&market.NewsAnalysis{SentimentScore: 0.5, Confidence: 0.5}), 1e-9)
	// low confidence pulls the score toward neutral
	assert.InDelta(t, 55.0, newsScore(&market.NewsAnalysis{SentimentScore: 1, Confidence: 0.1}), 1e-9)
}
