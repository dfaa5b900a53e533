// Package market aggregates the external data feeds into the single
// signal surface the engine consumes.
package market

import (
	"context"

	"coinpilot/internal/analysis/indicator"
	"coinpilot/internal/config"
	mkt "coinpilot/internal/market"
)

// NewsProvider is optional; without one every symbol reports no news and
// the evaluator renormalizes the news weight away.
type NewsProvider interface {
	News(ctx context.Context, sym string) (mkt.NewsAnalysis, bool)
}

// Service implements engine.MarketService over the candle source and the
// cached sentiment/trending feeds.
type Service struct {
	cfg       config.MarketConfig
	candles   mkt.CandleSource
	fearGreed *mkt.FearGreedService
	trending  *mkt.TrendingService
	news      NewsProvider
	settings  indicator.Settings
}

func NewService(cfg config.MarketConfig, candles mkt.CandleSource, fearGreed *mkt.FearGreedService, trending *mkt.TrendingService, news NewsProvider) *Service {
	return &Service{
		cfg:       cfg,
		candles:   candles,
		fearGreed: fearGreed,
		trending:  trending,
		news:      news,
	}
}

// Refresh brings the cached feeds up to date. Called once at the top of a
// cycle so evaluation itself stays free of network calls.
func (s *Service) Refresh(ctx context.Context) {
	if s.fearGreed != nil {
		s.fearGreed.RefreshIfStale(ctx)
	}
	if s.trending != nil {
		s.trending.RefreshIfStale(ctx)
	}
}

func (s *Service) Technical(ctx context.Context, sym string) (mkt.TechnicalSnapshot, error) {
	candles, err := s.candles.Candles(ctx, sym, s.cfg.CandleInterval, s.cfg.CandleLimit)
	if err != nil {
		return mkt.TechnicalSnapshot{}, err
	}
	return indicator.ComputeSnapshot(candles, s.settings)
}

func (s *Service) Sentiment(ctx context.Context) (mkt.SentimentSnapshot, bool) {
	if s.fearGreed == nil {
		return mkt.SentimentSnapshot{}, false
	}
	return s.fearGreed.Sentiment()
}

func (s *Service) Trending(ctx context.Context, sym string) (mkt.TrendingSnapshot, bool) {
	if s.trending == nil {
		return mkt.TrendingSnapshot{}, false
	}
	return s.trending.Trending(sym)
}

func (s *Service) News(ctx context.Context, sym string) (mkt.NewsAnalysis, bool) {
	if s.news == nil {
		return mkt.NewsAnalysis{}, false
	}
	return s.news.News(ctx, sym)
}
