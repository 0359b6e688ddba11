package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

const yodobashiBaseURL = "https://www.yodobashi.com"

// Yodobashi scrapes the yodobashi.com search result HTML. No public
// API exists; the page is server-rendered, so a plain HTTP fetch plus
// goquery is enough and no browser is needed. Yodobashi ships new
// goods only and shipping is free storewide.
type Yodobashi struct {
	http      *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	logger    *slog.Logger
}

func NewYodobashi(client *http.Client, limiter *ratelimit.Limiter, userAgent string, logger *slog.Logger) *Yodobashi {
	if client == nil {
		client = &http.Client{Timeout: APITimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Yodobashi{
		http:      client,
		limiter:   limiter,
		userAgent: userAgent,
		logger:    logger.With("component", "adapter", "platform", models.PlatformYodobashi),
	}
}

func (a *Yodobashi) Platform() models.Platform { return models.PlatformYodobashi }
func (a *Yodobashi) Timeout() time.Duration    { return APITimeout }

func (a *Yodobashi) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if err := a.limiter.Wait(ctx, a.Platform()); err != nil {
		return nil, err
	}

	searchURL := yodobashiBaseURL + "/?word=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(a.Platform(), resp.StatusCode); err != nil {
		return nil, err
	}

	records, err := parseYodobashiResults(resp.Body, limit)
	if err != nil {
		return nil, NewError(a.Platform(), KindParse, "%v", err)
	}

	a.logger.Debug("search finished", "query", query, "hits", len(records))
	return records, nil
}

// parseYodobashiResults extracts raw records from a search result
// page. Split out of Search so it can be exercised against static
// HTML fixtures.
func parseYodobashiResults(r io.Reader, limit int) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	if doc.Find("title").Text() != "" && strings.Contains(doc.Find("title").Text(), "アクセスが集中") {
		return nil, fmt.Errorf("interstitial page served instead of results")
	}

	var records []models.RawRecord
	doc.Find(".srcResultItem, .productListTile").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}

		title := strings.TrimSpace(s.Find(".pName, .productName").First().Text())
		price := strings.TrimSpace(s.Find(".productPrice").First().Text())

		href, _ := s.Find("a").First().Attr("href")
		if strings.HasPrefix(href, "/") {
			href = yodobashiBaseURL + href
		}

		img, _ := s.Find("img").First().Attr("src")
		if strings.HasPrefix(img, "//") {
			img = "https:" + img
		}

		if title == "" || price == "" || href == "" {
			return true
		}

		records = append(records, models.RawRecord{
			Title:        title,
			PriceText:    price,
			ShippingText: "無料配達",
			SellerName:   "ヨドバシカメラ",
			URL:          href,
			ImageURL:     img,
		})
		return true
	})

	return records, nil
}
