package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
)

// FeedbackTableCacheKey holds the serialized table.
const FeedbackTableCacheKey = "feedback:table"

// CachedFeedbackAdapter wraps a feedback store with a read-through cache.
// Writes go straight to the store. The cached copy is only for display;
// read-modify-write callers use ReadFresh.
type CachedFeedbackAdapter struct {
	adapter repositories.FeedbackRepository
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

var (
	_ repositories.FeedbackRepository = (*CachedFeedbackAdapter)(nil)
	_ repositories.CacheInvalidator   = (*CachedFeedbackAdapter)(nil)
	_ repositories.FreshReader        = (*CachedFeedbackAdapter)(nil)
)

// NewCachedFeedbackAdapter creates a cached feedback store; ttlSeconds bounds staleness.
func NewCachedFeedbackAdapter(adapter repositories.FeedbackRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *CachedFeedbackAdapter {
	return &CachedFeedbackAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
		metrics: metrics,
	}
}

// Read serves the table from cache, falling back to the store on a miss
func (a *CachedFeedbackAdapter) Read(ctx context.Context) (entities.FeedbackTable, error) {
	cached, err := a.cache.Get(ctx, FeedbackTableCacheKey)
	switch {
	case err == nil:
		var table entities.FeedbackTable
		decodeErr := json.Unmarshal(cached, &table)
		if decodeErr == nil {
			observability.RecordCacheHit(ctx, a.metrics, FeedbackTableCacheKey)
			if table == nil {
				table = entities.FeedbackTable{}
			}
			return table, nil
		}
		log.Warn().Err(decodeErr).Msg("Discarding unreadable cached feedback table")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Msg("Feedback cache lookup failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, FeedbackTableCacheKey)

	table, err := a.adapter.Read(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(table); err == nil {
		if err := a.cache.Set(ctx, FeedbackTableCacheKey, data, a.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache feedback table")
		}
	}
	return table, nil
}

// ReadFresh reads the wrapped store, bypassing the cache and leaving it untouched
func (a *CachedFeedbackAdapter) ReadFresh(ctx context.Context) (entities.FeedbackTable, error) {
	return a.adapter.Read(ctx)
}

// Write delegates to the wrapped store
func (a *CachedFeedbackAdapter) Write(ctx context.Context, table entities.FeedbackTable) error {
	return a.adapter.Write(ctx, table)
}

// Invalidate drops the cached table
func (a *CachedFeedbackAdapter) Invalidate(ctx context.Context) error {
	return a.cache.Delete(ctx, FeedbackTableCacheKey)
}
