package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// APITimeout is the default per-call budget of JSON-API adapters.
const APITimeout = 20 * time.Second

const yahooSearchURL = "https://shopping.yahooapis.jp/ShoppingWebService/V3/itemSearch"

// YahooShopping queries the Yahoo! Shopping item search API.
type YahooShopping struct {
	appID   string
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewYahooShopping(appID string, client *http.Client, limiter *ratelimit.Limiter, logger *slog.Logger) *YahooShopping {
	if client == nil {
		client = &http.Client{Timeout: APITimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YahooShopping{
		appID:   appID,
		http:    client,
		limiter: limiter,
		logger:  logger.With("component", "adapter", "platform", models.PlatformYahooShopping),
	}
}

func (a *YahooShopping) Platform() models.Platform { return models.PlatformYahooShopping }
func (a *YahooShopping) Timeout() time.Duration    { return APITimeout }

type yahooSearchResponse struct {
	TotalResultsAvailable int `json:"totalResultsAvailable"`
	Hits                  []struct {
		Name      string `json:"name"`
		Price     int    `json:"price"`
		URL       string `json:"url"`
		Condition string `json:"condition"`
		Image     struct {
			Medium string `json:"medium"`
		} `json:"image"`
		Seller struct {
			Name string `json:"name"`
		} `json:"seller"`
		Shipping struct {
			Code int    `json:"code"`
			Name string `json:"name"`
		} `json:"shipping"`
	} `json:"hits"`
}

func (a *YahooShopping) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if err := a.limiter.Wait(ctx, a.Platform()); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("appid", a.appID)
	params.Set("query", query)
	params.Set("results", strconv.Itoa(limit))
	params.Set("sort", "+price")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yahooSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(a.Platform(), resp.StatusCode); err != nil {
		return nil, err
	}

	var body yahooSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewError(a.Platform(), KindParse, "decoding search response: %v", err)
	}

	records := make([]models.RawRecord, 0, len(body.Hits))
	for _, hit := range body.Hits {
		shipping := hit.Shipping.Name
		// Shipping code 1 means the fee is set per store; the API
		// carries no amount, so the fee stays unknown and the name
		// text decides. Code 2 is explicit free shipping.
		if hit.Shipping.Code == 2 {
			shipping = "送料無料"
		}
		records = append(records, models.RawRecord{
			Title:         hit.Name,
			PriceText:     strconv.Itoa(hit.Price),
			ShippingText:  shipping,
			ConditionText: hit.Condition,
			SellerName:    hit.Seller.Name,
			URL:           hit.URL,
			ImageURL:      hit.Image.Medium,
		})
	}

	a.logger.Debug("search finished", "query", query, "hits", len(records), "available", body.TotalResultsAvailable)
	return records, nil
}

// checkStatus maps HTTP status codes onto the adapter error taxonomy
// shared by every API-backed adapter.
func checkStatus(platform models.Platform, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return NewError(platform, KindRateLimited, "status %d", status)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return NewError(platform, KindBlocked, "status %d", status)
	default:
		return NewError(platform, KindHTTP, "unexpected status %d", status)
	}
}
