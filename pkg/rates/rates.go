// Package rates fetches USD/KES conversion rates with a static fallback.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FallbackUSDKES is used when the rate API is unconfigured or unreachable.
var FallbackUSDKES = decimal.NewFromInt(129)

// Source is anything that can quote a conversion rate from one currency to another.
type Source interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Client queries an exchangerate-api.com compatible endpoint and caches quotes.
type Client struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
	client  *http.Client

	mu    sync.Mutex
	cache map[string]quote
}

type quote struct {
	rate decimal.Decimal
	at   time.Time
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		TTL:     10 * time.Minute,
		client:  &http.Client{Timeout: timeout},
		cache:   make(map[string]quote),
	}
}

type pairResp struct {
	Result         string          `json:"result"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

// Rate returns the from->to rate. Identical currencies convert at 1. Errors from the
// remote API fall back to the static USD/KES rate.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	key := from + to
	c.mu.Lock()
	if q, ok := c.cache[key]; ok && time.Since(q.at) < c.TTL {
		c.mu.Unlock()
		return q.rate, nil
	}
	c.mu.Unlock()

	if c.APIKey != "" {
		r, err := c.fetch(ctx, from, to)
		if err == nil {
			c.mu.Lock()
			c.cache[key] = quote{rate: r, at: time.Now()}
			c.mu.Unlock()
			return r, nil
		}
		zap.L().Warn("[Rates] remote quote failed, using fallback", zap.String("pair", key), zap.Error(err))
	}
	return Fallback(from, to)
}

func (c *Client) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v6/%s/pair/%s/%s", c.BaseURL, c.APIKey, from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rates: status %d", resp.StatusCode)
	}
	var out pairResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("rates: decode: %w", err)
	}
	if out.Result != "success" || !out.ConversionRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rates: result %q", out.Result)
	}
	return out.ConversionRate, nil
}

// Fallback returns the static rate for the USD/KES pair.
func Fallback(from, to string) (decimal.Decimal, error) {
	switch {
	case from == to:
		return decimal.NewFromInt(1), nil
	case from == "USD" && to == "KES":
		return FallbackUSDKES, nil
	case from == "KES" && to == "USD":
		return decimal.NewFromInt(1).DivRound(FallbackUSDKES, 10), nil
	}
	return decimal.Zero, fmt.Errorf("rates: unsupported pair %s/%s", from, to)
}

// Static always quotes fixed rates; tests and offline runs use it.
type Static map[string]decimal.Decimal

func (s Static) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := s[from+to]; ok {
		return r, nil
	}
	return Fallback(from, to)
}
