package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CandleSource supplies OHLCV bars for a symbol. Implementations wrap
// whatever feed the operator points the agent at; the core never talks to
// an exchange order API.
type CandleSource interface {
	Candles(ctx context.Context, sym, interval string, limit int) ([]Candle, error)
}

// HTTPCandleSource pulls klines from a binance-style REST endpoint that
// returns an array of [openTime, open, high, low, close, volume, closeTime,
// ...] rows. Numeric fields may be strings; gjson coerces either way.
type HTTPCandleSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCandleSource(baseURL string) *HTTPCandleSource {
	return &HTTPCandleSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPCandleSource) Candles(ctx context.Context, sym, interval string, limit int) ([]Candle, error) {
	if s == nil || s.client == nil || s.baseURL == "" {
		return nil, fmt.Errorf("candle source not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 300
	}
	url := fmt.Sprintf("%s?symbol=%s&interval=%s&limit=%d", s.baseURL, sym, interval, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("candle request failed: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseKlineRows(string(body))
}

// ParseKlineRows decodes a JSON array of kline rows into candles.
func ParseKlineRows(raw string) ([]Candle, error) {
	raw = strings.TrimSpace(raw)
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("kline payload is not valid json")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("kline payload must be a json array")
	}
	var candles []Candle
	var badRow error
	parsed.ForEach(func(_, row gjson.Result) bool {
		cols := row.Array()
		if len(cols) < 6 {
			badRow = fmt.Errorf("kline row has %d columns, want >= 6", len(cols))
			return false
		}
		c := Candle{
			OpenTime: cols[0].Int(),
			Open:     cols[1].Float(),
			High:     cols[2].Float(),
			Low:      cols[3].Float(),
			Close:    cols[4].Float(),
			Volume:   cols[5].Float(),
		}
		if len(cols) > 6 {
			c.CloseTime = cols[6].Int()
		}
		candles = append(candles, c)
		return true
	})
	if badRow != nil {
		return nil, badRow
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("kline payload empty")
	}
	return candles, nil
}
