package adapters

import (
	"log/slog"
	"net/url"

	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// NewRakuma builds the Rakuma (fril.jp) adapter, the third of the
// browser-driven flea markets. Listings link onto item.fril.jp.
func NewRakuma(b *browser.Browser, limiter *ratelimit.Limiter, logger *slog.Logger) Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &browserAdapter{
		platform: models.PlatformRakuma,
		browser:  b,
		limiter:  limiter,
		logger:   logger.With("component", "adapter", "platform", models.PlatformRakuma),
		baseURL:  "https://fril.jp",
		searchURL: func(query string) string {
			return "https://fril.jp/s?query=" + url.QueryEscape(query) + "&transaction=selling"
		},
		sel: cardSelectors{
			item:  `div.item-box`,
			title: `.item-box__item-name, a p`,
			price: `.item-box__item-price, p[class*="price"]`,
		},
	}
}
