package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"coinpilot/internal/logger"
	"coinpilot/internal/pkg/symbol"
)

const (
	trendingCacheTTL     = 10 * time.Minute
	trendingErrorBackoff = 2 * time.Minute
	trendingPageSize     = 100
)

// TrendingService caches CoinGecko market rankings keyed by base asset
// (BTC, ETH, ...). Symbols missing from the feed report ok=false; the
// evaluator treats that as a neutral default.
type TrendingService struct {
	endpoint string
	client   *http.Client

	mu         sync.RWMutex
	byBase     map[string]TrendingSnapshot
	lastUpdate time.Time
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewTrendingService(endpoint string) *TrendingService {
	return &TrendingService{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		byBase: make(map[string]TrendingSnapshot),
	}
}

// Trending returns the cached snapshot for sym (any quote format accepted).
func (s *TrendingService) Trending(sym string) (TrendingSnapshot, bool) {
	if s == nil {
		return TrendingSnapshot{}, false
	}
	base := symbol.Parse(sym).Base
	if base == "" {
		return TrendingSnapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byBase[strings.ToUpper(base)]
	return snap, ok
}

// RefreshIfStale re-pulls the ranking table when the cache TTL elapsed.
func (s *TrendingService) RefreshIfStale(ctx context.Context) {
	if s == nil {
		return
	}
	if !s.stale() {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if !s.stale() {
		return
	}
	if err := s.refresh(ctx); err != nil {
		logger.Warnf("trending refresh failed: %v", err)
	}
}

func (s *TrendingService) stale() bool {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdate.IsZero() || s.nextUpdate.IsZero() {
		return true
	}
	return !now.Before(s.nextUpdate)
}

type trendingEntry struct {
	Symbol          string  `json:"symbol"`
	MarketCapRank   int     `json:"market_cap_rank"`
	TotalVolume     float64 `json:"total_volume"`
	PriceChange24h  float64 `json:"price_change_percentage_24h"`
}

func (s *TrendingService) refresh(ctx context.Context) error {
	if s.client == nil || s.endpoint == "" {
		return fmt.Errorf("trending service not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("invalid trending endpoint: %w", err)
	}
	q := u.Query()
	if q.Get("vs_currency") == "" {
		q.Set("vs_currency", "usd")
	}
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprintf("%d", trendingPageSize))
	q.Set("page", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		s.noteError()
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		s.noteError()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.noteError()
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var entries []trendingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		s.noteError()
		return err
	}
	if len(entries) == 0 {
		s.noteError()
		return fmt.Errorf("trending data empty")
	}

	byBase := make(map[string]TrendingSnapshot, len(entries))
	for _, e := range entries {
		base := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if base == "" || e.MarketCapRank <= 0 {
			continue
		}
		if _, dup := byBase[base]; dup {
			continue
		}
		byBase[base] = TrendingSnapshot{
			Rank:         e.MarketCapRank,
			VolumeUSD:    e.TotalVolume,
			Change24hPct: e.PriceChange24h,
		}
	}

	s.mu.Lock()
	s.byBase = byBase
	s.lastUpdate = time.Now()
	s.nextUpdate = time.Now().Add(trendingCacheTTL)
	s.mu.Unlock()
	return nil
}

func (s *TrendingService) noteError() {
	s.mu.Lock()
	s.nextUpdate = time.Now().Add(trendingErrorBackoff)
	s.mu.Unlock()
}
