package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harutk/pricehunter/internal/fx"
	"github.com/harutk/pricehunter/internal/models"
)

func TestParsePriceJPY(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
		ok       bool
	}{
		{"plain digits", "3480", 3480, true},
		{"yen symbol and separator", "¥3,480", 3480, true},
		{"trailing 円", "12,800円", 12800, true},
		{"full-width digits", "３，４８０円", 3480, true},
		{"surrounding text", "価格: ¥1,980 (税込)", 1980, true},
		{"zero", "0円", 0, true},
		{"no number", "価格未定", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParsePriceJPY(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseShippingJPY(t *testing.T) {
	assert.Equal(t, 0, ParseShippingJPY(""))
	assert.Equal(t, 0, ParseShippingJPY("送料無料"))
	assert.Equal(t, 0, ParseShippingJPY("送料込み"))
	assert.Equal(t, 0, ParseShippingJPY("Free shipping"))
	assert.Equal(t, 500, ParseShippingJPY("送料 ¥500"))
	assert.Equal(t, 0, ParseShippingJPY("出品者負担"))
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"新品", models.ConditionNew},
		{"新品、未使用", models.ConditionNew},
		{"New", models.ConditionNew},
		{"未使用に近い", models.ConditionUsedLikeNew},
		{"Like New", models.ConditionUsedLikeNew},
		{"目立った傷や汚れなし", models.ConditionUsedGood},
		{"中古", models.ConditionUsedGood},
		{"Used", models.ConditionUsedGood},
		{"やや傷や汚れあり", models.ConditionUsedFair},
		{"傷や汚れあり", models.ConditionUsedPoor},
		{"全体的に状態が悪い", models.ConditionUsedPoor},
		{"For parts or not working", models.ConditionUsedPoor},
		{"something else", models.ConditionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCondition(models.PlatformMercari, tt.text))
		})
	}
}

func TestParseConditionDefaults(t *testing.T) {
	assert.Equal(t, models.ConditionUsedGood, ParseCondition(models.PlatformMercari, ""))
	assert.Equal(t, models.ConditionUsedGood, ParseCondition(models.PlatformRakuma, ""))
	assert.Equal(t, models.ConditionNew, ParseCondition(models.PlatformYodobashi, ""))
	assert.Equal(t, models.ConditionNew, ParseCondition(models.PlatformYahooShopping, ""))
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL(models.PlatformMercari, "https://jp.mercari.com/item/m12345"))
	assert.True(t, ValidURL(models.PlatformYodobashi, "https://www.yodobashi.com/product/100000001"))

	// wrong platform
	assert.False(t, ValidURL(models.PlatformMercari, "https://www.yodobashi.com/product/1"))
	// wrong scheme
	assert.False(t, ValidURL(models.PlatformMercari, "http://jp.mercari.com/item/m12345"))
	// relative
	assert.False(t, ValidURL(models.PlatformMercari, "/item/m12345"))
	assert.False(t, ValidURL(models.PlatformMercari, ""))
}

func TestNormalizeDropsInvalidRecords(t *testing.T) {
	n := New(fx.Static{}, nil)

	raws := []models.RawRecord{
		{Title: "Nintendo Switch 有機ELモデル", PriceText: "¥32,800", URL: "https://jp.mercari.com/item/m1"},
		{Title: "", PriceText: "1000", URL: "https://jp.mercari.com/item/m2"},                               // empty title
		{Title: "ab", PriceText: "1000", URL: "https://jp.mercari.com/item/m3"},                             // too short
		{Title: "Switch 本体のみ", PriceText: "値段なし", URL: "https://jp.mercari.com/item/m4"},                   // unparseable price
		{Title: "Switch ジャンク", PriceText: "500", URL: "ftp://jp.mercari.com/item/m5"},                      // bad scheme
		{Title: "Switch リングフィット付き", PriceText: "38,000円", URL: "https://example.com/item/6"},              // foreign host
		{Title: "Switch ライト", PriceText: "19,800", ShippingText: "送料 700円", URL: "https://jp.mercari.com/item/m7"},
	}

	items := n.Normalize(context.Background(), models.PlatformMercari, raws)
	require.Len(t, items, 2)

	assert.Equal(t, 32800, items[0].BasePrice)
	assert.Equal(t, 0, items[0].ShippingFee)
	assert.Equal(t, 32800, items[0].TotalPrice)
	assert.Equal(t, "JPY", items[0].Currency)
	assert.False(t, items[0].FetchedAt.IsZero())

	assert.Equal(t, 19800, items[1].BasePrice)
	assert.Equal(t, 700, items[1].ShippingFee)
	assert.Equal(t, 20500, items[1].TotalPrice)
}

func TestNormalizeTotalPriceInvariant(t *testing.T) {
	n := New(fx.Static{}, nil)

	raws := []models.RawRecord{
		{Title: "item one aaa", PriceText: "100", ShippingText: "250", URL: "https://jp.mercari.com/item/m1"},
		{Title: "item two bbb", PriceText: "9,999", ShippingText: "送料無料", URL: "https://jp.mercari.com/item/m2"},
		{Title: "item three cc", PriceText: "0", URL: "https://jp.mercari.com/item/m3"},
	}

	for _, item := range n.Normalize(context.Background(), models.PlatformMercari, raws) {
		assert.Equal(t, item.TotalPrice, item.BasePrice+item.ShippingFee)
	}
}

func TestNormalizeCurrencyConversion(t *testing.T) {
	n := New(fx.Static{"USD": 150}, nil)

	raws := []models.RawRecord{
		{
			Title:        "Pokemon card lot",
			PriceText:    "25.50",
			ShippingText: "4.99",
			Currency:     "USD",
			URL:          "https://www.ebay.com/itm/1234",
		},
	}

	items := n.Normalize(context.Background(), models.PlatformEbay, raws)
	require.Len(t, items, 1)

	assert.Equal(t, 3825, items[0].BasePrice)   // 25.50 * 150
	assert.Equal(t, 749, items[0].ShippingFee)  // 4.99 * 150, rounded
	assert.Equal(t, 4574, items[0].TotalPrice)
	assert.Equal(t, "USD", items[0].Currency)
}

func TestNormalizeIsTotalOnGarbage(t *testing.T) {
	n := New(nil, nil)

	raws := []models.RawRecord{
		{},
		{Title: "x"},
		{PriceText: "!!!", URL: "://broken"},
	}

	assert.Empty(t, n.Normalize(context.Background(), models.PlatformRakuma, raws))
}
