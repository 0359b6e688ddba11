// Package ratelimit spaces out requests per marketplace across
// consecutive aggregation calls. Within one call each platform sees
// at most one request, so the limiter only matters under sustained
// load from the task worker.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/harutk/pricehunter/internal/models"
)

// DefaultInterval is the minimum spacing between two requests to the
// same platform.
const DefaultInterval = 2 * time.Second

type Limiter struct {
	mu       sync.Mutex
	limiters map[models.Platform]*rate.Limiter
	interval time.Duration
}

func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{
		limiters: make(map[models.Platform]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until the platform may be hit again or ctx expires.
func (l *Limiter) Wait(ctx context.Context, platform models.Platform) error {
	return l.limiter(platform).Wait(ctx)
}

func (l *Limiter) limiter(platform models.Platform) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[platform]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[platform] = lim
	}
	return lim
}
