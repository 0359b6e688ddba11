// Package normalize maps raw adapter output into canonical item
// records. It is a total function over its input: malformed records
// are dropped and tallied, never raised.
package normalize

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/harutk/pricehunter/internal/models"
)

// RateSource converts a foreign currency into JPY. Implementations
// must answer quickly and fall back to a last-known rate internally;
// the normalizer never retries or blocks on it.
type RateSource interface {
	Rate(ctx context.Context, currency string) float64
}

// urlPrefixes lists the absolute URL prefixes a listing of each
// platform may point at. A record whose URL matches none of its
// platform's prefixes is rejected.
var urlPrefixes = map[models.Platform][]string{
	models.PlatformYahooShopping: {
		"https://store.shopping.yahoo.co.jp/",
		"https://shopping.yahoo.co.jp/",
	},
	models.PlatformRakuten: {
		"https://item.rakuten.co.jp/",
		"https://www.rakuten.co.jp/",
	},
	models.PlatformYodobashi: {
		"https://www.yodobashi.com/",
	},
	models.PlatformEbay: {
		"https://www.ebay.com/",
		"https://ebay.com/",
	},
	models.PlatformMercari: {
		"https://jp.mercari.com/",
		"https://www.mercari.com/",
	},
	models.PlatformPayPay: {
		"https://paypayfleamarket.yahoo.co.jp/",
	},
	models.PlatformRakuma: {
		"https://item.fril.jp/",
		"https://fril.jp/",
	},
}

var (
	priceDigitsRe  = regexp.MustCompile(`[0-9][0-9,]*`)
	priceDecimalRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
)

// Normalizer turns per-platform raw records into validated
// ItemRecords. One instance is shared by all aggregation calls.
type Normalizer struct {
	rates  RateSource
	logger *slog.Logger
	now    func() time.Time
}

func New(rates RateSource, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		rates:  rates,
		logger: logger.With("component", "normalizer"),
		now:    time.Now,
	}
}

// Normalize maps raw records to item records, dropping whatever fails
// validation. The number of drops is logged, not returned: drops do
// not alter control flow.
func (n *Normalizer) Normalize(ctx context.Context, platform models.Platform, raws []models.RawRecord) []models.ItemRecord {
	items := make([]models.ItemRecord, 0, len(raws))
	dropped := 0

	fetchedAt := n.now()
	for _, raw := range raws {
		item, ok := n.normalizeOne(ctx, platform, raw, fetchedAt)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}

	if dropped > 0 {
		n.logger.Debug("dropped invalid records",
			"platform", platform, "dropped", dropped, "kept", len(items))
	}
	return items
}

func (n *Normalizer) normalizeOne(ctx context.Context, platform models.Platform, raw models.RawRecord, fetchedAt time.Time) (models.ItemRecord, bool) {
	title := strings.TrimSpace(raw.Title)
	if len([]rune(title)) < 3 {
		return models.ItemRecord{}, false
	}

	if !ValidURL(platform, raw.URL) {
		return models.ItemRecord{}, false
	}

	base, ok := n.parseBasePrice(ctx, raw)
	if !ok {
		return models.ItemRecord{}, false
	}

	shipping := ParseShippingJPY(raw.ShippingText)
	if raw.Currency != "" && raw.Currency != "JPY" && raw.ShippingText != "" {
		if v, ok := parseDecimal(raw.ShippingText); ok {
			shipping = n.toJPY(ctx, v, raw.Currency)
		}
	}

	currency := raw.Currency
	if currency == "" {
		currency = "JPY"
	}

	item := models.ItemRecord{
		Platform:    platform,
		Title:       title,
		BasePrice:   base,
		ShippingFee: shipping,
		TotalPrice:  base + shipping,
		Condition:   ParseCondition(platform, raw.ConditionText),
		SellerName:  strings.TrimSpace(raw.SellerName),
		URL:         raw.URL,
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		Currency:    currency,
		FetchedAt:   fetchedAt,
	}
	if !item.Valid() {
		return models.ItemRecord{}, false
	}
	return item, true
}

func (n *Normalizer) parseBasePrice(ctx context.Context, raw models.RawRecord) (int, bool) {
	if raw.Currency == "" || raw.Currency == "JPY" {
		return ParsePriceJPY(raw.PriceText)
	}
	v, ok := parseDecimal(raw.PriceText)
	if !ok {
		return 0, false
	}
	return n.toJPY(ctx, v, raw.Currency), true
}

func (n *Normalizer) toJPY(ctx context.Context, value float64, currency string) int {
	rate := 1.0
	if n.rates != nil {
		rate = n.rates.Rate(ctx, currency)
	}
	return int(math.Round(value * rate))
}

// ParsePriceJPY extracts an integer yen amount from display text like
// "¥3,480", "3480円" or "３，４８０円" (full-width digits are folded
// first). Returns false when no usable number is present.
func ParsePriceJPY(text string) (int, bool) {
	text = width.Narrow.String(strings.TrimSpace(text))
	m := priceDigitsRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseShippingJPY parses a shipping-fee display string. Free or
// included shipping, and an empty field, both map to zero.
func ParseShippingJPY(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	if strings.Contains(text, "送料無料") ||
		strings.Contains(text, "送料込") ||
		strings.Contains(text, "無料") ||
		strings.Contains(lower, "free") {
		return 0
	}
	v, ok := ParsePriceJPY(text)
	if !ok {
		return 0
	}
	return v
}

func parseDecimal(text string) (float64, bool) {
	m := priceDecimalRe.FindString(width.Narrow.String(strings.TrimSpace(text)))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseCondition folds a platform's condition vocabulary into the
// canonical set. An empty source value gets a platform-appropriate
// default: retail platforms sell new goods, flea markets default to
// used_good.
func ParseCondition(platform models.Platform, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultCondition(platform)
	}
	lower := strings.ToLower(text)
	contains := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) || strings.Contains(text, s) {
				return true
			}
		}
		return false
	}

	// Order matters: the more specific grades shadow the generic ones.
	switch {
	case contains("未使用に近い", "like new"):
		return models.ConditionUsedLikeNew
	case contains("新品", "未使用", "brand new") || lower == "new":
		return models.ConditionNew
	case contains("全体的に状態が悪い", "for parts", "poor"):
		return models.ConditionUsedPoor
	case contains("やや傷や汚れあり", "acceptable", "fair"):
		return models.ConditionUsedFair
	case contains("傷や汚れあり"):
		return models.ConditionUsedPoor
	case contains("目立った傷や汚れなし", "very good", "good", "used", "中古"):
		return models.ConditionUsedGood
	default:
		return models.ConditionUnknown
	}
}

func defaultCondition(platform models.Platform) string {
	switch platform {
	case models.PlatformMercari, models.PlatformPayPay, models.PlatformRakuma:
		return models.ConditionUsedGood
	case models.PlatformYahooShopping, models.PlatformRakuten, models.PlatformYodobashi:
		return models.ConditionNew
	default:
		return models.ConditionUnknown
	}
}

// ValidURL reports whether u is an absolute, scheme-correct link into
// the given platform. Validation is by prefix match against the known
// listing URL roots.
func ValidURL(platform models.Platform, u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return false
	}
	for _, prefix := range urlPrefixes[platform] {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}
