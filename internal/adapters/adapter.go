package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harutk/pricehunter/internal/models"
)

// ErrorKind classifies why an adapter came back empty-handed.
// rate_limited and blocked are steady-state conditions on scraped
// marketplaces, not exceptional ones; the orchestrator treats every
// kind the same way.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindHTTP        ErrorKind = "http_error"
	KindParse       ErrorKind = "parse_error"
	KindRateLimited ErrorKind = "rate_limited"
	KindBlocked     ErrorKind = "blocked"
)

// Error is the failure marker an adapter hands back instead of items.
type Error struct {
	Platform models.Platform
	Kind     ErrorKind
	Message  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a classified adapter error.
func NewError(platform models.Platform, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Platform: platform, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Classify converts an arbitrary error returned by an adapter into a
// classified *Error. Already-classified errors pass through, context
// expiry maps to timeout, everything else counts as http_error since
// transport failures dominate in practice.
func Classify(platform models.Platform, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Platform: platform, Kind: KindTimeout, Message: "deadline exceeded"}
	}
	return &Error{Platform: platform, Kind: KindHTTP, Message: err.Error()}
}

// Adapter wraps one marketplace behind a uniform search interface.
// Implementations may call a JSON API, scrape HTML or drive a headless
// browser; the orchestrator never knows which. A failed Search must
// return (nil, err) and never panic or hang past its own timeout.
type Adapter interface {
	Platform() models.Platform
	// Timeout is the per-call budget this adapter needs. API-backed
	// adapters stay around 20s, browser-backed ones up to 60s.
	Timeout() time.Duration

	Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error)
}
