package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// BrowserTimeout is the per-call budget of browser-backed adapters.
// Page load plus DOM settle on the JS-heavy flea markets routinely
// takes 20-30s, so the budget is well above the API adapters'.
const BrowserTimeout = 60 * time.Second

const resultWaitMillis = 15000

// cardSelectors locates the pieces of one result card. The flea
// market fronts are all JS-rendered card grids, so the three
// browser adapters share one scrape loop and differ only in where
// the cards live.
type cardSelectors struct {
	item  string
	title string
	price string
}

type browserAdapter struct {
	platform  models.Platform
	browser   *browser.Browser
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	baseURL   string
	searchURL func(query string) string
	sel       cardSelectors
}

func (a *browserAdapter) Platform() models.Platform { return a.platform }
func (a *browserAdapter) Timeout() time.Duration    { return BrowserTimeout }

func (a *browserAdapter) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if err := a.limiter.Wait(ctx, a.platform); err != nil {
		return nil, err
	}

	// Playwright calls do not take a context, so the scrape runs in
	// its own goroutine and the adapter hands control back when ctx
	// expires. The goroutine keeps running until its own page
	// timeouts fire and closes the page on its way out; its late
	// result is discarded.
	type scrapeResult struct {
		records []models.RawRecord
		err     error
	}
	ch := make(chan scrapeResult, 1)
	go func() {
		records, err := a.scrape(query, limit)
		ch <- scrapeResult{records: records, err: err}
	}()

	select {
	case res := <-ch:
		return res.records, res.err
	case <-ctx.Done():
		return nil, NewError(a.platform, KindTimeout, "browser search did not finish in time")
	}
}

func (a *browserAdapter) scrape(query string, limit int) ([]models.RawRecord, error) {
	page, err := a.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	searchURL := a.searchURL(query)
	if err := a.browser.NavigateWithRetry(page, searchURL, 2); err != nil {
		return nil, err
	}

	if a.browser.LooksBlocked(page) {
		return nil, NewError(a.platform, KindBlocked, "anti-bot interstitial served for %s", searchURL)
	}

	if _, err := page.WaitForSelector(a.sel.item, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(resultWaitMillis),
	}); err != nil {
		// No cards is a legitimate empty result, not a failure.
		a.logger.Debug("no result cards appeared", "url", searchURL)
		return []models.RawRecord{}, nil
	}

	cards, err := page.Locator(a.sel.item).All()
	if err != nil {
		return nil, NewError(a.platform, KindParse, "locating result cards: %v", err)
	}

	records := make([]models.RawRecord, 0, len(cards))
	for _, card := range cards {
		if len(records) >= limit {
			break
		}
		rec, ok := a.extractCard(card)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	a.logger.Debug("search finished", "query", query, "cards", len(cards), "extracted", len(records))
	return records, nil
}

func (a *browserAdapter) extractCard(card playwright.Locator) (models.RawRecord, bool) {
	title, _ := card.Locator(a.sel.title).First().TextContent()
	if strings.TrimSpace(title) == "" {
		// Card grids usually mirror the listing title into the
		// thumbnail alt text; use it when the name node is empty.
		title, _ = card.Locator("img").First().GetAttribute("alt")
	}

	price, _ := card.Locator(a.sel.price).First().TextContent()

	href, _ := card.Locator("a").First().GetAttribute("href")
	if href == "" {
		// On some fronts the card itself is the anchor.
		href, _ = card.GetAttribute("href")
	}
	if strings.HasPrefix(href, "/") {
		href = a.baseURL + href
	}

	img, _ := card.Locator("img").First().GetAttribute("src")

	if strings.TrimSpace(title) == "" || strings.TrimSpace(price) == "" || href == "" {
		return models.RawRecord{}, false
	}

	return models.RawRecord{
		Title:     strings.TrimSpace(title),
		PriceText: strings.TrimSpace(price),
		URL:       href,
		ImageURL:  img,
	}, true
}
