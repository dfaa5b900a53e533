package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"coinpilot/internal/logger"
)

const (
	fearGreedErrorBackoff   = 2 * time.Minute
	fearGreedFallbackUpdate = 12 * time.Hour
)

// FearGreedService caches the alternative.me fear & greed index and exposes
// it as a SentimentSnapshot. Refreshes honor the API's own update schedule
// and back off after errors.
type FearGreedService struct {
	endpoint string
	client   *http.Client

	mu         sync.RWMutex
	snapshot   SentimentSnapshot
	lastUpdate time.Time
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewFearGreedService(endpoint string) *FearGreedService {
	return &FearGreedService{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Sentiment returns the cached snapshot; ok is false before the first
// successful refresh.
func (s *FearGreedService) Sentiment() (SentimentSnapshot, bool) {
	if s == nil {
		return SentimentSnapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, !s.lastUpdate.IsZero()
}

// RefreshIfStale refreshes the cached index when the update window passed.
// Safe for concurrent callers; only one refresh runs at a time.
func (s *FearGreedService) RefreshIfStale(ctx context.Context) {
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
		logger.Warnf("fear & greed refresh failed: %v", err)
	}
}

func (s *FearGreedService) stale() bool {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdate.IsZero() || s.nextUpdate.IsZero() {
		return true
	}
	return !now.Before(s.nextUpdate)
}

type fearGreedResponse struct {
	Data []struct {
		Value           string `json:"value"`
		TimeUntilUpdate string `json:"time_until_update"`
	} `json:"data"`
	Metadata struct {
		Error interface{} `json:"error"`
	} `json:"metadata"`
}

func (s *FearGreedService) refresh(ctx context.Context) error {
	if s.client == nil || s.endpoint == "" {
		return fmt.Errorf("fear & greed service not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
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

	var payload fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.noteError()
		return err
	}
	if payload.Metadata.Error != nil {
		s.noteError()
		return fmt.Errorf("api error: %v", payload.Metadata.Error)
	}
	if len(payload.Data) == 0 {
		s.noteError()
		return fmt.Errorf("api data empty")
	}

	latest := payload.Data[0]
	value, err := strconv.ParseFloat(strings.TrimSpace(latest.Value), 64)
	if err != nil {
		s.noteError()
		return fmt.Errorf("api value invalid: %w", err)
	}

	next := time.Now().Add(fearGreedFallbackUpdate)
	if raw := strings.TrimSpace(latest.TimeUntilUpdate); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			next = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}

	s.mu.Lock()
	s.snapshot = SentimentSnapshot{Label: ClassifySentiment(value), Score: value}
	s.lastUpdate = time.Now()
	s.nextUpdate = next
	s.mu.Unlock()
	return nil
}

// noteError keeps the last good snapshot but delays the next attempt.
func (s *FearGreedService) noteError() {
	s.mu.Lock()
	s.nextUpdate = time.Now().Add(fearGreedErrorBackoff)
	s.mu.Unlock()
}
