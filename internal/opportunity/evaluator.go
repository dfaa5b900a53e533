// Package opportunity scores how attractive an asset is to trade this
// cycle, combining technical, sentiment, trending, liquidity, volatility
// and news sub-scores into one 0-100 composite.
package opportunity

import (
	"math"

	"coinpilot/internal/market"
)

// Level buckets the composite score.
type Level string

const (
	LevelPoor      Level = "poor"      // score < 30
	LevelModerate  Level = "moderate"  // 30 <= score < 60
	LevelGood      Level = "good"      // 60 <= score < 75
	LevelExcellent Level = "excellent" // score >= 75
)

// Criteria keys published in Result.CriteriaMet.
const (
	CriterionMinLiquidity         = "min_liquidity"
	CriterionVolatilityControlled = "volatility_controlled"
	CriterionOverallQuality       = "overall_quality"
)

// Result is the evaluator's per-symbol output. Recomputed every cycle,
// never persisted.
type Result struct {
	Symbol      string          `json:"symbol"`
	Score       float64         `json:"score"`
	Level       Level           `json:"level"`
	CriteriaMet map[string]bool `json:"criteria_met"`
}

// Inputs carries one cycle's signals for a symbol. Nil members mean the
// source had nothing for this symbol; their sub-scores are excluded and
// the remaining weights renormalized.
type Inputs struct {
	Technical *market.TechnicalSnapshot
	Sentiment *market.SentimentSnapshot
	Trending  *market.TrendingSnapshot
	News      *market.NewsAnalysis
	// VolumeUSD overrides the liquidity volume; when nil the trending
	// snapshot's 24h volume is used instead.
	VolumeUSD *float64
}

// Weights are the sub-score weights. They need not sum to 1; the evaluator
// normalizes over the weights of present inputs.
type Weights struct {
	Technical  float64
	Sentiment  float64
	Trending   float64
	Liquidity  float64
	Volatility float64
	News       float64
}

func DefaultWeights() Weights {
	return Weights{
		Technical:  0.30,
		Sentiment:  0.15,
		Trending:   0.20,
		Liquidity:  0.15,
		Volatility: 0.10,
		News:       0.10,
	}
}

// Evaluator is safe for concurrent use; it holds only immutable settings.
type Evaluator struct {
	weights         Weights
	minLiquidityUSD float64
	maxATRPct       float64
}

func NewEvaluator(weights Weights, minLiquidityUSD, maxATRPct float64) *Evaluator {
	if minLiquidityUSD <= 0 {
		minLiquidityUSD = 10_000_000
	}
	if maxATRPct <= 0 {
		maxATRPct = 15.0
	}
	return &Evaluator{weights: weights, minLiquidityUSD: minLiquidityUSD, maxATRPct: maxATRPct}
}

// Evaluate computes the weighted composite for one symbol. Missing inputs
// never fail the evaluation: absent optional sources drop out of the
// weighted sum, absent mandatory ones degrade to neutral.
func (e *Evaluator) Evaluate(sym string, in Inputs) Result {
	type component struct {
		weight float64
		score  float64
		ok     bool
	}
	volumeUSD, volumeKnown := e.liquidityVolume(in)
	components := []component{
		{e.weights.Technical, technicalScore(in.Technical), in.Technical != nil},
		{e.weights.Sentiment, sentimentScore(in.Sentiment), in.Sentiment != nil},
		{e.weights.Trending, trendingScore(in.Trending), true}, // absent trending scores neutral 50
		{e.weights.Liquidity, liquidityScore(volumeUSD), volumeKnown},
		{e.weights.Volatility, volatilityScore(in.Technical), in.Technical != nil},
		{e.weights.News, newsScore(in.News), in.News != nil},
	}

	// Absent components drop out; remaining weights are renormalized so the
	// present contributions still sum to 100%.
	var weighted, totalWeight float64
	for _, c := range components {
		if !c.ok || c.weight <= 0 {
			continue
		}
		weighted += c.weight * c.score
		totalWeight += c.weight
	}
	score := 50.0
	if totalWeight > 0 {
		score = clamp(weighted/totalWeight, 0, 100)
	}

	criteria := e.criteria(in, volumeUSD, volumeKnown)
	return Result{
		Symbol:      sym,
		Score:       score,
		Level:       levelFor(score),
		CriteriaMet: criteria,
	}
}

func (e *Evaluator) liquidityVolume(in Inputs) (float64, bool) {
	if in.VolumeUSD != nil {
		return math.Max(*in.VolumeUSD, 0), true
	}
	if in.Trending != nil && in.Trending.VolumeUSD > 0 {
		return in.Trending.VolumeUSD, true
	}
	return 0, false
}

func (e *Evaluator) criteria(in Inputs, volumeUSD float64, volumeKnown bool) map[string]bool {
	minLiquidity := volumeKnown && volumeUSD >= e.minLiquidityUSD
	volatilityControlled := in.Technical != nil && in.Technical.ATRPct < e.maxATRPct
	return map[string]bool{
		CriterionMinLiquidity:         minLiquidity,
		CriterionVolatilityControlled: volatilityControlled,
		CriterionOverallQuality:       minLiquidity && volatilityControlled,
	}
}

// technicalScore starts neutral and shifts on oversold/overbought RSI,
// MACD cross direction, price vs long EMA, and an oversized ATR penalty.
func technicalScore(t *market.TechnicalSnapshot) float64 {
	if t == nil {
		return 50
	}
	score := 50.0
	switch {
	case t.RSI > 0 && t.RSI < 30:
		score += 20 // oversold, contrarian buying opportunity
	case t.RSI > 70:
		score -= 20
	}
	if t.MACD > t.MACDSignal {
		score += 15
	} else {
		score -= 15
	}
	if t.EMALong > 0 {
		if t.Price > t.EMALong {
			score += 15
		} else {
			score -= 15
		}
	}
	if t.ATRPct > 15 {
		score -= 20
	}
	return clamp(score, 0, 100)
}

// sentimentScore is contrarian: extreme fear scores high, extreme greed low.
func sentimentScore(s *market.SentimentSnapshot) float64 {
	if s == nil {
		return 50
	}
	switch s.Label {
	case market.SentimentExtremeFear:
		return 90
	case market.SentimentFear:
		return 75
	case market.SentimentNeutral:
		return 50
	case market.SentimentGreed:
		return 25
	case market.SentimentExtremeGreed:
		return 10
	default:
		return 50
	}
}

// trendingScore rewards top-ranked assets with strong volume and momentum.
// Missing data scores the neutral default 50.
func trendingScore(t *market.TrendingSnapshot) float64 {
	if t == nil || t.Rank <= 0 {
		return 50
	}
	switch {
	case t.Rank <= 10 && t.VolumeUSD > 500_000_000 && t.Change24hPct > 10:
		return 85
	case t.Rank <= 10 && t.VolumeUSD > 500_000_000:
		return 72
	case t.Rank <= 10:
		return 60
	case t.Rank <= 25 && t.VolumeUSD > 100_000_000:
		return 55
	case t.Rank <= 25:
		return 45
	default:
		return 35
	}
}

// liquidityScore bands 24h volume: >=200M maxes out, <10M is near-zero.
func liquidityScore(volumeUSD float64) float64 {
	switch {
	case volumeUSD >= 200_000_000:
		return 100
	case volumeUSD >= 50_000_000:
		return 70 + (volumeUSD-50_000_000)/150_000_000*29
	case volumeUSD >= 10_000_000:
		return 40 + (volumeUSD-10_000_000)/40_000_000*29
	case volumeUSD > 0:
		return volumeUSD / 10_000_000 * 30
	default:
		return 0
	}
}

// volatilityScore rewards calm assets; ATR above 15% is penalized
// regardless of upside.
func volatilityScore(t *market.TechnicalSnapshot) float64 {
	if t == nil {
		return 50
	}
	atr := t.ATRPct
	switch {
	case atr <= 0:
		return 50 // no ATR reading, stay neutral
	case atr < 5:
		return 90
	case atr <= 10:
		return 84 - (atr-5)/5*34
	case atr <= 15:
		return 50 - (atr-10)/5*20
	default:
		return clamp(30-(atr-15)*2, 0, 30)
	}
}

// newsScore maps sentiment*confidence from [-1,1] into [0,100].
func newsScore(n *market.NewsAnalysis) float64 {
	if n == nil {
		return 50
	}
	s := clamp(n.SentimentScore, -1, 1)
	c := clamp(n.Confidence, 0, 1)
	return clamp(50+s*c*50, 0, 100)
}

func levelFor(score float64) Level {
	switch {
	case score >= 75:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 30:
		return LevelModerate
	default:
		return LevelPoor
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
