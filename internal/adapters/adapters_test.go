package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/ratelimit"
)

// rewriteTransport sends every request to the test server regardless
// of the host the adapter dialed.
type rewriteTransport struct {
	server *httptest.Server
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(t.server.URL)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return t.server.Client().Transport.RoundTrip(req)
}

func testClient(server *httptest.Server) *http.Client {
	return &http.Client{Transport: rewriteTransport{server}}
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(time.Millisecond)
}

func TestYahooShoppingSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-app-id", r.URL.Query().Get("appid"))
		assert.Equal(t, "Nintendo Switch", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("results"))
		assert.Equal(t, "+price", r.URL.Query().Get("sort"))

		fmt.Fprint(w, `{
			"totalResultsAvailable": 2,
			"hits": [
				{
					"name": "Nintendo Switch 本体",
					"price": 29800,
					"url": "https://store.shopping.yahoo.co.jp/shop-a/switch.html",
					"condition": "new",
					"image": {"medium": "https://item-shopping.c.yimg.jp/i/n/switch"},
					"seller": {"name": "shop-a"},
					"shipping": {"code": 2, "name": "条件付き送料無料"}
				},
				{
					"name": "Nintendo Switch Lite",
					"price": 19800,
					"url": "https://store.shopping.yahoo.co.jp/shop-b/lite.html",
					"condition": "used",
					"seller": {"name": "shop-b"},
					"shipping": {"code": 1, "name": "送料840円"}
				}
			]
		}`)
	}))
	defer server.Close()

	a := NewYahooShopping("test-app-id", testClient(server), testLimiter(), nil)

	records, err := a.Search(context.Background(), "Nintendo Switch", 20)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Nintendo Switch 本体", records[0].Title)
	assert.Equal(t, "29800", records[0].PriceText)
	// shipping code 2 overrides the display name
	assert.Equal(t, "送料無料", records[0].ShippingText)
	assert.Equal(t, "shop-a", records[0].SellerName)

	assert.Equal(t, "送料840円", records[1].ShippingText)
	assert.Equal(t, "used", records[1].ConditionText)
}

func TestRakutenSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rakuten-app-id", r.URL.Query().Get("applicationId"))
		assert.Equal(t, "switch", r.URL.Query().Get("keyword"))
		// the API page size is capped below our own maximum
		assert.Equal(t, "30", r.URL.Query().Get("hits"))

		fmt.Fprint(w, `{
			"count": 2,
			"Items": [
				{"Item": {
					"itemName": "Switch 本体 楽天",
					"itemPrice": 31000,
					"itemUrl": "https://item.rakuten.co.jp/shop-x/sw001/",
					"shopName": "shop-x",
					"postageFlag": 0,
					"mediumImageUrls": [{"imageUrl": "https://thumbnail.image.rakuten.co.jp/sw001.jpg"}]
				}},
				{"Item": {
					"itemName": "Switch ソフト",
					"itemPrice": 5200,
					"itemUrl": "https://item.rakuten.co.jp/shop-y/soft/",
					"shopName": "shop-y",
					"postageFlag": 1
				}}
			]
		}`)
	}))
	defer server.Close()

	a := NewRakuten("rakuten-app-id", testClient(server), testLimiter(), nil)

	records, err := a.Search(context.Background(), "switch", 50)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "送料込み", records[0].ShippingText)
	assert.Equal(t, "https://thumbnail.image.rakuten.co.jp/sw001.jpg", records[0].ImageURL)
	// postageFlag 1: fee unknown, left blank
	assert.Equal(t, "", records[1].ShippingText)
}

type recordingTranslator struct {
	got    string
	result string
}

func (r *recordingTranslator) Translate(_ context.Context, text string) string {
	r.got = text
	return r.result
}

func TestEbaySearchTranslatesJapaneseQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Nintendo Switch console", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))

		fmt.Fprint(w, `{
			"total": 1,
			"itemSummaries": [
				{
					"title": "Nintendo Switch Console Gray",
					"price": {"value": "199.99", "currency": "USD"},
					"condition": "Used",
					"itemWebUrl": "https://www.ebay.com/itm/1234567890",
					"seller": {"username": "us-seller"},
					"shippingOptions": [{"shippingCost": {"value": "12.50", "currency": "USD"}}]
				}
			]
		}`)
	}))
	defer server.Close()

	tr := &recordingTranslator{result: "Nintendo Switch console"}
	a := NewEbay("test-token", testClient(server), testLimiter(), tr, nil)

	records, err := a.Search(context.Background(), "ニンテンドースイッチ 本体", 20)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "ニンテンドースイッチ 本体", tr.got)
	assert.Equal(t, "199.99", records[0].PriceText)
	assert.Equal(t, "12.50", records[0].ShippingText)
	assert.Equal(t, "USD", records[0].Currency)
	assert.Equal(t, "https://www.ebay.com/itm/1234567890", records[0].URL)
}

func TestEbaySearchSkipsTranslationForEnglish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pokemon cards", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"total": 0, "itemSummaries": []}`)
	}))
	defer server.Close()

	tr := &recordingTranslator{result: "should not be used"}
	a := NewEbay("test-token", testClient(server), testLimiter(), tr, nil)

	records, err := a.Search(context.Background(), "pokemon cards", 20)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, tr.got)
}

func TestSearchMapsHTTPStatusToErrorKind(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusForbidden, KindBlocked},
		{http.StatusUnauthorized, KindBlocked},
		{http.StatusInternalServerError, KindHTTP},
		{http.StatusBadGateway, KindHTTP},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			a := NewYahooShopping("id", testClient(server), testLimiter(), nil)
			_, err := a.Search(context.Background(), "switch", 20)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, models.PlatformYahooShopping, ae.Platform)
		})
	}
}

func TestSearchReportsParseErrorOnBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer server.Close()

	a := NewRakuten("id", testClient(server), testLimiter(), nil)
	_, err := a.Search(context.Background(), "switch", 20)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindParse, ae.Kind)
}

func TestClassify(t *testing.T) {
	classified := NewError(models.PlatformMercari, KindBlocked, "already classified")
	assert.Same(t, classified, Classify(models.PlatformMercari, fmt.Errorf("wrapped: %w", classified)))

	timeout := Classify(models.PlatformEbay, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, timeout.Kind)

	plain := Classify(models.PlatformEbay, errors.New("connection reset"))
	assert.Equal(t, KindHTTP, plain.Kind)
	assert.Equal(t, "http_error: connection reset", plain.Error())
}

const yodobashiFixture = `<!DOCTYPE html>
<html><head><title>検索結果 - ヨドバシ.com</title></head><body>
<div class="srcResultItem">
  <a href="/product/100000001004444444/">
    <img src="//image.yodobashi.com/product/100000001004444444.jpg">
    <span class="pName">Nintendo Switch 有機ELモデル ホワイト</span>
    <span class="productPrice">￥37,980</span>
  </a>
</div>
<div class="srcResultItem">
  <a href="https://www.yodobashi.com/product/100000001005555555/">
    <span class="pName">Nintendo Switch Lite ターコイズ</span>
    <span class="productPrice">￥21,970</span>
  </a>
</div>
<div class="srcResultItem">
  <a href="/product/100000001006666666/">
    <span class="pName">価格のない商品</span>
  </a>
</div>
</body></html>`

func TestParseYodobashiResults(t *testing.T) {
	records, err := parseYodobashiResults(strings.NewReader(yodobashiFixture), 20)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Nintendo Switch 有機ELモデル ホワイト", records[0].Title)
	assert.Equal(t, "￥37,980", records[0].PriceText)
	assert.Equal(t, "https://www.yodobashi.com/product/100000001004444444/", records[0].URL)
	assert.Equal(t, "https://image.yodobashi.com/product/100000001004444444.jpg", records[0].ImageURL)
	assert.Equal(t, "無料配達", records[0].ShippingText)
	assert.Equal(t, "ヨドバシカメラ", records[0].SellerName)

	assert.Equal(t, "https://www.yodobashi.com/product/100000001005555555/", records[1].URL)
}

func TestParseYodobashiResultsRespectsLimit(t *testing.T) {
	records, err := parseYodobashiResults(strings.NewReader(yodobashiFixture), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseYodobashiResultsInterstitial(t *testing.T) {
	page := `<html><head><title>アクセスが集中しております</title></head><body></body></html>`
	_, err := parseYodobashiResults(strings.NewReader(page), 20)
	assert.Error(t, err)
}
