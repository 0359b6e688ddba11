// Package aggregate fans a query out to every platform adapter,
// collects whatever comes back within the deadline and produces one
// ranked result. Individual adapter failures never fail the call;
// only an empty QuerySpec does.
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/harutk/pricehunter/internal/adapters"
	"github.com/harutk/pricehunter/internal/dedupe"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/normalize"
)

// DefaultGlobalTimeout bounds one whole aggregation call. It sits
// above the longest single adapter budget so a slow browser adapter
// can still finish, with margin for the join itself.
const DefaultGlobalTimeout = 90 * time.Second

type Orchestrator struct {
	adapters      []adapters.Adapter
	normalizer    *normalize.Normalizer
	logger        *slog.Logger
	globalTimeout time.Duration
}

type Option func(*Orchestrator)

// WithGlobalTimeout overrides the aggregation-level deadline.
func WithGlobalTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.globalTimeout = d }
}

// New builds an orchestrator over the given adapters. The slice order
// is the dispatch order and therefore the tie-break order of the
// final sort; callers normally pass adapters in models.Platforms()
// order.
func New(ads []adapters.Adapter, n *normalize.Normalizer, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		adapters:      ads,
		normalizer:    n,
		logger:        logger.With("component", "orchestrator"),
		globalTimeout: DefaultGlobalTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is one adapter's contribution to a call.
type outcome struct {
	idx      int
	platform models.Platform
	items    []models.ItemRecord
	rawCount int
	err      *adapters.Error
}

// Aggregate runs the full pipeline: resolve the query, dispatch all
// adapters concurrently, join under the global deadline, normalize,
// dedupe, sort ascending by total price and truncate to the limit.
//
// Any number of adapter failures, up to all of them, still yields a
// valid result with the failures recorded in Errors. The only error
// return is an unresolvable QuerySpec.
func (o *Orchestrator) Aggregate(ctx context.Context, spec models.QuerySpec) (*models.AggregationResult, error) {
	query, err := spec.Resolve()
	if err != nil {
		return nil, err
	}
	limit := spec.EffectiveLimit()

	ctx, cancel := context.WithTimeout(ctx, o.globalTimeout)
	defer cancel()

	started := time.Now()
	o.logger.Info("aggregation dispatched", "query", query, "limit", limit, "adapters", len(o.adapters))

	ch := make(chan outcome, len(o.adapters))
	for i, ad := range o.adapters {
		go o.runAdapter(ctx, ch, i, ad, query, limit)
	}

	// Join point: wait for every adapter or the global deadline,
	// whichever comes first. Adapters still outstanding when the
	// deadline fires are written off as timeouts; anything they send
	// later lands in the buffered channel and is discarded.
	outcomes := make([]*outcome, len(o.adapters))
	pending := len(o.adapters)
collect:
	for pending > 0 {
		select {
		case out := <-ch:
			outcomes[out.idx] = &out
			pending--
		case <-ctx.Done():
			break collect
		}
	}
	for i, ad := range o.adapters {
		if outcomes[i] == nil {
			outcomes[i] = &outcome{
				idx:      i,
				platform: ad.Platform(),
				err:      adapters.NewError(ad.Platform(), adapters.KindTimeout, "no response before aggregation deadline"),
			}
		}
	}

	result := o.merge(outcomes, limit)
	o.logger.Info("aggregation done",
		"query", query,
		"total_found", result.TotalFound,
		"after_dedup", result.AfterDedup,
		"returned", len(result.Items),
		"failed_platforms", len(result.Errors),
		"elapsed", time.Since(started))
	return result, nil
}

func (o *Orchestrator) runAdapter(ctx context.Context, ch chan<- outcome, idx int, ad adapters.Adapter, query string, limit int) {
	platform := ad.Platform()

	actx, cancel := context.WithTimeout(ctx, ad.Timeout())
	defer cancel()

	raws, err := ad.Search(actx, query, limit)
	if err != nil {
		aerr := adapters.Classify(platform, err)
		o.logger.Warn("adapter failed", "platform", platform, "kind", aerr.Kind, "error", aerr.Message)
		ch <- outcome{idx: idx, platform: platform, err: aerr}
		return
	}

	items := o.normalizer.Normalize(actx, platform, raws)
	o.logger.Debug("adapter returned", "platform", platform, "raw", len(raws), "normalized", len(items))
	ch <- outcome{idx: idx, platform: platform, items: items, rawCount: len(raws)}
}

// merge concatenates all contributions in dispatch order, dedupes,
// sorts and truncates. Dispatch order plus a stable sort gives the
// deterministic tie-break the output contract promises.
func (o *Orchestrator) merge(outcomes []*outcome, limit int) *models.AggregationResult {
	result := &models.AggregationResult{
		PlatformCounts: make(map[models.Platform]int, len(outcomes)),
	}

	var merged []models.ItemRecord
	for _, out := range outcomes {
		if out.err != nil {
			result.PlatformCounts[out.platform] = 0
			if result.Errors == nil {
				result.Errors = make(map[models.Platform]string)
			}
			result.Errors[out.platform] = out.err.Error()
			continue
		}
		result.PlatformCounts[out.platform] = out.rawCount
		merged = append(merged, out.items...)
	}

	result.TotalFound = len(merged)
	merged = dedupe.Dedupe(merged)
	result.AfterDedup = len(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TotalPrice < merged[j].TotalPrice
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	if merged == nil {
		merged = []models.ItemRecord{}
	}
	result.Items = merged
	return result
}
