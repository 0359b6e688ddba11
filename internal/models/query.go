package models

import (
	"errors"
	"strings"

	"golang.org/x/text/width"
)

const (
	// DefaultLimit is used when the caller does not request a size.
	DefaultLimit = 20
	// MaxLimit bounds the fan-out cost of a single aggregation.
	MaxLimit = 50
)

// ErrEmptyQuerySpec is the only fatal input error of an aggregation:
// none of the identifying fields were supplied.
var ErrEmptyQuerySpec = errors.New("query spec: no jan code, product name or free text given")

// QuerySpec is the caller-supplied search intent. Exactly one of the
// identifying fields is expected; when several are set, ProductName
// wins over JANCode, which wins over FreeText.
type QuerySpec struct {
	JANCode     string `json:"jan_code,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	FreeText    string `json:"free_text,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Resolve returns the effective query string. JAN codes are folded to
// half-width digits since barcodes copied from Japanese sites often
// arrive full-width.
func (q QuerySpec) Resolve() (string, error) {
	if s := strings.TrimSpace(q.ProductName); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(q.JANCode); s != "" {
		return width.Narrow.String(s), nil
	}
	if s := strings.TrimSpace(q.FreeText); s != "" {
		return s, nil
	}
	return "", ErrEmptyQuerySpec
}

// EffectiveLimit applies the default and the hard cap.
func (q QuerySpec) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	if q.Limit > MaxLimit {
		return MaxLimit
	}
	return q.Limit
}

// AggregationResult is the output contract of one aggregation call.
type AggregationResult struct {
	Items []ItemRecord `json:"items"`
	// PlatformCounts holds the raw per-adapter counts before dedup
	// and truncation. Failed platforms are present with count zero.
	PlatformCounts map[Platform]int `json:"platform_counts"`
	// Errors is populated only for platforms that failed or timed out.
	Errors     map[Platform]string `json:"errors,omitempty"`
	TotalFound int                 `json:"total_found"`
	AfterDedup int                 `json:"after_dedup"`
}
