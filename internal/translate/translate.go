// Package translate wraps the external translation collaborator used
// by adapters targeting non-Japanese marketplaces. The contract is
// deliberately weak: a translation that cannot be obtained within the
// timeout degrades to the original text, it never blocks a search.
package translate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode"
)

const defaultTimeout = 3 * time.Second

// Translator converts Japanese query text into English.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Client calls an HTTP translation endpoint expected to answer
// GET ?q=<text> with {"text": "<translated>"}.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   logger.With("component", "translate"),
	}
}

// Translate returns the translated text, or the input unchanged when
// the endpoint is unset, unreachable, slow or answers garbage.
func (c *Client) Translate(ctx context.Context, text string) string {
	if c.endpoint == "" || text == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?q="+url.QueryEscape(text), nil)
	if err != nil {
		return text
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("translation unavailable, passing query through", "error", err)
		return text
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("translation unavailable, passing query through", "status", resp.StatusCode)
		return text
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Text == "" {
		return text
	}
	return body.Text
}

// Passthrough is the deterministic fallback translator: it returns
// input unchanged. Used when no endpoint is configured.
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text string) string { return text }

// ContainsJapanese reports whether s has any hiragana, katakana or
// CJK ideograph, i.e. whether translation is worth attempting at all.
func ContainsJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
