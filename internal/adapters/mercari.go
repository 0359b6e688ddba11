package adapters

import (
	"log/slog"
	"net/url"

	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// NewMercari builds the Mercari adapter. Mercari has no public search
// API and renders its result grid client-side, so this adapter drives
// the shared headless browser.
func NewMercari(b *browser.Browser, limiter *ratelimit.Limiter, logger *slog.Logger) Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &browserAdapter{
		platform: models.PlatformMercari,
		browser:  b,
		limiter:  limiter,
		logger:   logger.With("component", "adapter", "platform", models.PlatformMercari),
		baseURL:  "https://jp.mercari.com",
		searchURL: func(query string) string {
			return "https://jp.mercari.com/search?keyword=" + url.QueryEscape(query) + "&status=on_sale"
		},
		sel: cardSelectors{
			item:  `li[data-testid="item-cell"]`,
			title: `[data-testid="thumbnail-item-name"]`,
			price: `[data-testid="price"], .merPrice`,
		},
	}
}
