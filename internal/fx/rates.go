// Package fx looks up JPY exchange rates for the few non-JPY
// platforms. Lookups are cached in Redis and degrade to hardcoded
// last-known rates; a rate is always answered, never an error, so the
// normalizer cannot stall on a flaky rate service.
package fx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lookupTimeout = 3 * time.Second
	cacheTTL      = 6 * time.Hour
	cacheKey      = "pricehunter:fx:"
)

// fallbackRates are last-known JPY rates, used when both the cache
// and the live lookup fail.
var fallbackRates = map[string]float64{
	"USD": 150.0,
	"EUR": 162.0,
	"GBP": 190.0,
}

// Client resolves currency -> JPY rates. The Redis client is
// optional; without it every call goes straight to the endpoint with
// the hardcoded fallback behind it.
type Client struct {
	endpoint string
	http     *http.Client
	redis    *redis.Client
	logger   *slog.Logger
}

func NewClient(endpoint string, rdb *redis.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: lookupTimeout},
		redis:    rdb,
		logger:   logger.With("component", "fx"),
	}
}

// Rate returns the multiplier that converts one unit of currency into
// JPY. JPY and unknown inputs return 1 and the fallback table
// respectively; the method never fails.
func (c *Client) Rate(ctx context.Context, currency string) float64 {
	if currency == "" || currency == "JPY" {
		return 1
	}

	if rate, ok := c.cached(ctx, currency); ok {
		return rate
	}

	if rate, ok := c.lookup(ctx, currency); ok {
		c.cache(ctx, currency, rate)
		return rate
	}

	if rate, ok := fallbackRates[currency]; ok {
		c.logger.Warn("using fallback exchange rate", "currency", currency, "rate", rate)
		return rate
	}
	c.logger.Warn("no rate known for currency, converting 1:1", "currency", currency)
	return 1
}

func (c *Client) cached(ctx context.Context, currency string) (float64, bool) {
	if c.redis == nil {
		return 0, false
	}
	val, err := c.redis.Get(ctx, cacheKey+currency).Result()
	if err != nil {
		return 0, false
	}
	rate, err := strconv.ParseFloat(val, 64)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

func (c *Client) cache(ctx context.Context, currency string, rate float64) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey+currency, strconv.FormatFloat(rate, 'f', -1, 64), cacheTTL).Err(); err != nil {
		c.logger.Warn("failed to cache exchange rate", "currency", currency, "error", err)
	}
}

// lookup asks the configured endpoint, expected to answer
// GET ?from=<cur>&to=JPY with {"rate": <float>}.
func (c *Client) lookup(ctx context.Context, currency string) (float64, bool) {
	if c.endpoint == "" {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?from="+currency+"&to=JPY", nil)
	if err != nil {
		return 0, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("rate lookup failed", "currency", currency, "error", err)
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("rate lookup failed", "currency", currency, "status", resp.StatusCode)
		return 0, false
	}

	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Rate <= 0 {
		return 0, false
	}
	return body.Rate, true
}

// Static is a fixed-rate source for tests and offline runs.
type Static map[string]float64

func (s Static) Rate(_ context.Context, currency string) float64 {
	if currency == "" || currency == "JPY" {
		return 1
	}
	if rate, ok := s[currency]; ok {
		return rate
	}
	return 1
}
