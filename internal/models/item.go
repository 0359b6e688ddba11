package models

import (
	"strings"
	"time"
)

// Platform identifies the marketplace a listing came from.
type Platform string

const (
	PlatformYahooShopping Platform = "yahoo_shopping"
	PlatformRakuten       Platform = "rakuten"
	PlatformYodobashi     Platform = "yodobashi"
	PlatformEbay          Platform = "ebay"
	PlatformMercari       Platform = "mercari"
	PlatformPayPay        Platform = "paypay"
	PlatformRakuma        Platform = "rakuma"
)

// Platforms returns all supported platforms in dispatch order.
// The order is fixed so that repeated aggregations over the same
// inputs produce identical tie-breaks.
func Platforms() []Platform {
	return []Platform{
		PlatformYahooShopping,
		PlatformRakuten,
		PlatformYodobashi,
		PlatformEbay,
		PlatformMercari,
		PlatformPayPay,
		PlatformRakuma,
	}
}

// Item condition vocabulary shared by all platforms after normalization.
const (
	ConditionNew          = "new"
	ConditionUsedLikeNew  = "used_like_new"
	ConditionUsedGood     = "used_good"
	ConditionUsedFair     = "used_fair"
	ConditionUsedPoor     = "used_poor"
	ConditionUnknown      = "unknown"
)

// RawRecord is what an adapter extracts from its source before any
// normalization: untyped text fields in whatever shape the platform
// naturally exposes. Price and shipping stay textual because every
// platform formats them differently.
type RawRecord struct {
	Title         string
	PriceText     string
	ShippingText  string
	ConditionText string
	SellerName    string
	URL           string
	ImageURL      string
	// Currency is the ISO code of PriceText. Empty means JPY.
	Currency string
}

// ItemRecord is the canonical listing produced by the normalizer.
// Records are treated as immutable values once created.
type ItemRecord struct {
	Platform    Platform  `json:"platform"`
	Title       string    `json:"title"`
	BasePrice   int       `json:"base_price"`
	ShippingFee int       `json:"shipping_fee"`
	TotalPrice  int       `json:"total_price"`
	Condition   string    `json:"condition"`
	SellerName  string    `json:"seller_name,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Currency    string    `json:"currency"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Valid reports whether the record satisfies the minimal contract
// every normalized record must hold.
func (it *ItemRecord) Valid() bool {
	if len(strings.TrimSpace(it.Title)) < 3 {
		return false
	}
	if it.BasePrice < 0 || it.ShippingFee < 0 {
		return false
	}
	if it.TotalPrice != it.BasePrice+it.ShippingFee {
		return false
	}
	return it.URL != ""
}
