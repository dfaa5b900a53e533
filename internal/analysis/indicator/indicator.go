// Package indicator converts raw candles into the per-cycle technical
// snapshot consumed by the opportunity evaluator.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"coinpilot/internal/market"
)

// Settings describes the indicator parameters. Zero values fall back to
// the common defaults (RSI 14, MACD 12/26/9, EMA 20/50, ATR 14).
type Settings struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	EMAShort   int
	EMALong    int
	ATRPeriod  int
}

func (s *Settings) applyDefaults() {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.MACDFast <= 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = 9
	}
	if s.EMAShort <= 0 {
		s.EMAShort = 20
	}
	if s.EMALong <= 0 {
		s.EMALong = 50
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
}

// ComputeSnapshot runs talib over the candle series and returns the latest
// indicator values. The series must be long enough for the slowest
// indicator, otherwise an error is returned and the caller treats the
// symbol as having no technical data this cycle.
func ComputeSnapshot(candles []market.Candle, cfg Settings) (market.TechnicalSnapshot, error) {
	cfg.applyDefaults()
	minLen := cfg.EMALong
	if cfg.MACDSlow+cfg.MACDSignal > minLen {
		minLen = cfg.MACDSlow + cfg.MACDSignal
	}
	if len(candles) < minLen {
		return market.TechnicalSnapshot{}, fmt.Errorf("need at least %d candles, got %d", minLen, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	lastClose := closes[len(closes)-1]
	if lastClose <= 0 {
		return market.TechnicalSnapshot{}, fmt.Errorf("last close must be positive, got %f", lastClose)
	}

	rsi := talib.Rsi(closes, cfg.RSIPeriod)
	macd, macdSignal, macdHist := talib.Macd(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	emaShort := talib.Ema(closes, cfg.EMAShort)
	emaLong := talib.Ema(closes, cfg.EMALong)
	atr := talib.Atr(highs, lows, closes, cfg.ATRPeriod)

	snap := market.TechnicalSnapshot{
		RSI:        lastValid(rsi),
		MACD:       lastFinite(macd),
		MACDSignal: lastFinite(macdSignal),
		MACDHist:   lastFinite(macdHist),
		EMAShort:   lastValid(emaShort),
		EMALong:    lastValid(emaLong),
		Price:      lastClose,
	}
	if atrVal := lastValid(atr); atrVal > 0 {
		snap.ATRPct = atrVal / lastClose * 100
	}
	return snap, nil
}

// lastValid returns the last strictly positive finite value of a series,
// skipping talib's leading zero warm-up region.
func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}

// lastFinite returns the last finite value, zero or negative included
// (MACD lines legitimately cross zero).
func lastFinite(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}
