package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NicolasGut/motorsport-digest/internal/cache"
	"github.com/NicolasGut/motorsport-digest/internal/gemini"
	"github.com/NicolasGut/motorsport-digest/internal/metrics"
	"github.com/NicolasGut/motorsport-digest/internal/ratelimit"
	"github.com/NicolasGut/motorsport-digest/internal/storage"
)

// SummaryStore is the persistent side of the summary cache.
type SummaryStore interface {
	GetSummary(ctx context.Context, contentHash string) (storage.CachedSummary, error)
	PutSummary(ctx context.Context, c storage.CachedSummary) error
}

// summaryCache answers from the in-run cache first, then from the store.
// Store hits are copied into the in-run cache.
type summaryCache struct {
	mem     *cache.Cache[gemini.Summary]
	store   SummaryStore
	limiter *ratelimit.AIRateLimiter
	metrics *metrics.Metrics
	log     *slog.Logger
}

func newSummaryCache(store SummaryStore, limiter *ratelimit.AIRateLimiter, m *metrics.Metrics, log *slog.Logger) *summaryCache {
	return &summaryCache{
		mem:     cache.New[gemini.Summary](24*time.Hour, time.Hour),
		store:   store,
		limiter: limiter,
		metrics: m,
		log:     log,
	}
}

func (c *summaryCache) Get(ctx context.Context, key string, textLen int) (gemini.Summary, bool) {
	if s, ok := c.mem.Get(key); ok {
		c.hit(textLen)
		return s, true
	}
	if c.store == nil {
		return gemini.Summary{}, false
	}

	cached, err := c.store.GetSummary(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn("summary cache lookup failed", "error", err)
		}
		return gemini.Summary{}, false
	}
	s := gemini.Summary{
		TitleFR:   cached.TitleFR,
		SummaryFR: cached.SummaryFR,
		TitleEN:   cached.TitleEN,
		SummaryEN: cached.SummaryEN,
	}
	c.mem.Set(key, s)
	c.hit(textLen)
	return s, true
}

func (c *summaryCache) hit(textLen int) {
	if c.limiter != nil {
		c.limiter.RecordCacheHit(textLen / 4)
	}
	c.metrics.IncrementCacheHits()
}

func (c *summaryCache) Put(ctx context.Context, key string, s gemini.Summary) {
	c.mem.Set(key, s)
	if c.store == nil {
		return
	}
	err := c.store.PutSummary(ctx, storage.CachedSummary{
		ContentHash: key,
		TitleFR:     s.TitleFR,
		SummaryFR:   s.SummaryFR,
		TitleEN:     s.TitleEN,
		SummaryEN:   s.SummaryEN,
	})
	if err != nil {
		c.log.Warn("summary cache write failed", "error", err)
	}
}
