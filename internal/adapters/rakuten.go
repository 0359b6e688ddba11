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

const rakutenSearchURL = "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20220601"

// Rakuten queries the Rakuten Ichiba item search API.
type Rakuten struct {
	appID   string
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewRakuten(appID string, client *http.Client, limiter *ratelimit.Limiter, logger *slog.Logger) *Rakuten {
	if client == nil {
		client = &http.Client{Timeout: APITimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rakuten{
		appID:   appID,
		http:    client,
		limiter: limiter,
		logger:  logger.With("component", "adapter", "platform", models.PlatformRakuten),
	}
}

func (a *Rakuten) Platform() models.Platform { return models.PlatformRakuten }
func (a *Rakuten) Timeout() time.Duration    { return APITimeout }

type rakutenSearchResponse struct {
	Count int `json:"count"`
	Items []struct {
		Item struct {
			ItemName        string `json:"itemName"`
			ItemPrice       int    `json:"itemPrice"`
			ItemURL         string `json:"itemUrl"`
			ShopName        string `json:"shopName"`
			PostageFlag     int    `json:"postageFlag"`
			MediumImageURLs []struct {
				ImageURL string `json:"imageUrl"`
			} `json:"mediumImageUrls"`
		} `json:"Item"`
	} `json:"Items"`
}

func (a *Rakuten) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if err := a.limiter.Wait(ctx, a.Platform()); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("applicationId", a.appID)
	params.Set("keyword", query)
	params.Set("hits", strconv.Itoa(min(limit, 30))) // API page size cap
	params.Set("sort", "+itemPrice")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rakutenSearchURL+"?"+params.Encode(), nil)
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

	var body rakutenSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewError(a.Platform(), KindParse, "decoding search response: %v", err)
	}

	records := make([]models.RawRecord, 0, len(body.Items))
	for _, wrapper := range body.Items {
		item := wrapper.Item

		// postageFlag 0 means postage is included in the item price.
		shipping := ""
		if item.PostageFlag == 0 {
			shipping = "送料込み"
		}

		image := ""
		if len(item.MediumImageURLs) > 0 {
			image = item.MediumImageURLs[0].ImageURL
		}

		records = append(records, models.RawRecord{
			Title:        item.ItemName,
			PriceText:    strconv.Itoa(item.ItemPrice),
			ShippingText: shipping,
			SellerName:   item.ShopName,
			URL:          item.ItemURL,
			ImageURL:     image,
		})
	}

	a.logger.Debug("search finished", "query", query, "hits", len(records), "available", body.Count)
	return records, nil
}
