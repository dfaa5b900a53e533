package market

// TechnicalSnapshot holds one cycle's indicator values for a symbol.
// Produced once per analysis cycle and treated as immutable downstream.
type TechnicalSnapshot struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	EMAShort   float64 `json:"ema_short"`
	EMALong    float64 `json:"ema_long"`
	Price      float64 `json:"price"`
	ATRPct     float64 `json:"atr_pct"`
}

// SentimentLabel classifies the market-wide fear & greed reading.
type SentimentLabel string

const (
	SentimentExtremeFear  SentimentLabel = "extreme_fear"
	SentimentFear         SentimentLabel = "fear"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentGreed        SentimentLabel = "greed"
	SentimentExtremeGreed SentimentLabel = "extreme_greed"
)

// SentimentSnapshot is the fear & greed reading used by the evaluator.
type SentimentSnapshot struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"` // raw index value, 0-100
}

// TrendingSnapshot carries market-cap rank and 24h liquidity/momentum data.
// A zero Rank means the symbol was not found in the trending feed.
type TrendingSnapshot struct {
	Rank         int     `json:"rank"`
	VolumeUSD    float64 `json:"volume_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
}

// NewsAnalysis is an optional upstream news sentiment reading.
type NewsAnalysis struct {
	SentimentScore float64 `json:"sentiment_score"` // [-1, 1]
	Confidence     float64 `json:"confidence"`      // [0, 1]
}

// ClassifySentiment maps a 0-100 fear & greed index value onto a label.
func ClassifySentiment(value float64) SentimentLabel {
	switch {
	case value < 25:
		return SentimentExtremeFear
	case value < 45:
		return SentimentFear
	case value <= 55:
		return SentimentNeutral
	case value <= 75:
		return SentimentGreed
	default:
		return SentimentExtremeGreed
	}
}
