// Package dedupe collapses near-duplicate listings. Deduplication is
// strictly per platform: two marketplaces selling the same physical
// product remain distinct listings.
package dedupe

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/harutk/pricehunter/internal/models"
)

// Dedupe returns the input with duplicates removed, first seen wins.
// Input order is preserved, which makes the operation idempotent and
// stable with respect to platform arrival order.
func Dedupe(items []models.ItemRecord) []models.ItemRecord {
	if len(items) < 2 {
		return items
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]models.ItemRecord, 0, len(items))
	for _, it := range items {
		fp := Fingerprint(it)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Fingerprint derives the dedup key for a record: platform plus
// normalized URL when the URL parses, otherwise platform plus folded
// title plus total price.
func Fingerprint(it models.ItemRecord) string {
	if u := normalizeURL(it.URL); u != "" {
		return string(it.Platform) + "|u|" + u
	}
	return fmt.Sprintf("%s|t|%s|%d", it.Platform, foldTitle(it.Title), it.TotalPrice)
}

// normalizeURL strips the parts that vary between otherwise identical
// listing links: fragment, query tracking noise, trailing slash and
// host case.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// foldTitle normalizes a title for fingerprinting: NFKC so full-width
// and half-width variants compare equal, lowercased, inner whitespace
// collapsed.
func foldTitle(title string) string {
	t := norm.NFKC.String(title)
	t = strings.ToLower(strings.TrimSpace(t))
	return strings.Join(strings.Fields(t), " ")
}
