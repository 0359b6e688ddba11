package adapters

import (
	"log/slog"
	"net/url"

	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// NewPayPay builds the PayPay Flea Market adapter. Same JS-rendered
// card grid as Mercari, different host and selectors; result cards
// are anchors straight onto the listing pages.
func NewPayPay(b *browser.Browser, limiter *ratelimit.Limiter, logger *slog.Logger) Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &browserAdapter{
		platform: models.PlatformPayPay,
		browser:  b,
		limiter:  limiter,
		logger:   logger.With("component", "adapter", "platform", models.PlatformPayPay),
		baseURL:  "https://paypayfleamarket.yahoo.co.jp",
		searchURL: func(query string) string {
			return "https://paypayfleamarket.yahoo.co.jp/search/" + url.PathEscape(query) + "?open=1"
		},
		sel: cardSelectors{
			item:  `a[href^="/item/"]`,
			title: `p[class*="Title"], p`,
			price: `span[class*="Price"], span`,
		},
	}
}
