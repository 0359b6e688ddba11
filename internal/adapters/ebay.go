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
	"github.com/harutk/pricehunter/internal/translate"
)

const ebaySearchURL = "https://api.ebay.com/buy/browse/v1/item_summary/search"

// Ebay queries the eBay Browse API. It is the one non-Japanese
// marketplace, so Japanese queries are run through the translation
// collaborator first; prices come back in the listing currency and
// are converted downstream by the normalizer.
type Ebay struct {
	token      string
	http       *http.Client
	limiter    *ratelimit.Limiter
	translator translate.Translator
	logger     *slog.Logger
}

func NewEbay(token string, client *http.Client, limiter *ratelimit.Limiter, translator translate.Translator, logger *slog.Logger) *Ebay {
	if client == nil {
		client = &http.Client{Timeout: APITimeout}
	}
	if translator == nil {
		translator = translate.Passthrough{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ebay{
		token:      token,
		http:       client,
		limiter:    limiter,
		translator: translator,
		logger:     logger.With("component", "adapter", "platform", models.PlatformEbay),
	}
}

func (a *Ebay) Platform() models.Platform { return models.PlatformEbay }
func (a *Ebay) Timeout() time.Duration    { return APITimeout }

type ebaySearchResponse struct {
	Total         int `json:"total"`
	ItemSummaries []struct {
		Title string `json:"title"`
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
		Condition  string `json:"condition"`
		ItemWebURL string `json:"itemWebUrl"`
		Image      struct {
			ImageURL string `json:"imageUrl"`
		} `json:"image"`
		Seller struct {
			Username string `json:"username"`
		} `json:"seller"`
		ShippingOptions []struct {
			ShippingCost struct {
				Value    string `json:"value"`
				Currency string `json:"currency"`
			} `json:"shippingCost"`
		} `json:"shippingOptions"`
	} `json:"itemSummaries"`
}

func (a *Ebay) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if err := a.limiter.Wait(ctx, a.Platform()); err != nil {
		return nil, err
	}

	if translate.ContainsJapanese(query) {
		translated := a.translator.Translate(ctx, query)
		if translated != query {
			a.logger.Debug("query translated", "from", query, "to", translated)
			query = translated
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ebaySearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(a.Platform(), resp.StatusCode); err != nil {
		return nil, err
	}

	var body ebaySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewError(a.Platform(), KindParse, "decoding search response: %v", err)
	}

	records := make([]models.RawRecord, 0, len(body.ItemSummaries))
	for _, item := range body.ItemSummaries {
		shipping := ""
		if len(item.ShippingOptions) > 0 {
			shipping = item.ShippingOptions[0].ShippingCost.Value
		}
		records = append(records, models.RawRecord{
			Title:         item.Title,
			PriceText:     item.Price.Value,
			ShippingText:  shipping,
			ConditionText: item.Condition,
			SellerName:    item.Seller.Username,
			URL:           item.ItemWebURL,
			ImageURL:      item.Image.ImageURL,
			Currency:      item.Price.Currency,
		})
	}

	a.logger.Debug("search finished", "query", query, "hits", len(records), "available", body.Total)
	return records, nil
}
