package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Services sharing the per-run AI budget.
const (
	Gemini    = "gemini"
	Translate = "translate"
)

// ErrBudgetExhausted is returned once a service (or the run) used its quota.
var ErrBudgetExhausted = errors.New("ai request budget exhausted")

type serviceLimit struct {
	max   int
	used  int
	pacer *rate.Limiter
}

// AIRateLimiter caps how many paid AI calls one run makes and spaces them out.
type AIRateLimiter struct {
	mu          sync.Mutex
	services    map[string]*serviceLimit
	totalCount  int
	maxTotal    int
	tokensSaved int
	cacheHits   int
	cacheMisses int
	log         *slog.Logger
}

// NewAIRateLimiter creates a limiter; maxTotal 0 means no global cap.
func NewAIRateLimiter(maxTotal int, log *slog.Logger) *AIRateLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AIRateLimiter{
		services: make(map[string]*serviceLimit),
		maxTotal: maxTotal,
		log:      log,
	}
}

// SetLimit configures a service: at most max calls (0 = unlimited), one every
// interval (0 = no pacing).
func (rl *AIRateLimiter) SetLimit(service string, max int, interval time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sl := &serviceLimit{max: max}
	if interval > 0 {
		sl.pacer = rate.NewLimiter(rate.Every(interval), 1)
	}
	rl.services[service] = sl
}

// CanUse reports whether a call to service would fit in the budget.
func (rl *AIRateLimiter) CanUse(service string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.checkLocked(service) == nil
}

// Acquire reserves one call, then waits for the service pacer.
func (rl *AIRateLimiter) Acquire(ctx context.Context, service string) error {
	rl.mu.Lock()
	if err := rl.checkLocked(service); err != nil {
		rl.mu.Unlock()
		return err
	}
	sl := rl.service(service)
	sl.used++
	rl.totalCount++
	rl.cacheMisses++
	pacer := sl.pacer
	used, max := sl.used, sl.max
	rl.mu.Unlock()

	rl.log.Debug("ai usage", "service", service, "used", used, "limit", max, "total", rl.Total())

	if pacer == nil {
		return nil
	}
	if err := pacer.Wait(ctx); err != nil {
		return fmt.Errorf("wait for %s slot: %w", service, err)
	}
	return nil
}

func (rl *AIRateLimiter) service(name string) *serviceLimit {
	sl, ok := rl.services[name]
	if !ok {
		sl = &serviceLimit{}
		rl.services[name] = sl
	}
	return sl
}

func (rl *AIRateLimiter) checkLocked(service string) error {
	sl := rl.service(service)
	if sl.max > 0 && sl.used >= sl.max {
		return fmt.Errorf("%s (%d/%d): %w", service, sl.used, sl.max, ErrBudgetExhausted)
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("total (%d/%d): %w", rl.totalCount, rl.maxTotal, ErrBudgetExhausted)
	}
	return nil
}

// RecordCacheHit records a summary served from cache instead of the API.
func (rl *AIRateLimiter) RecordCacheHit(estimatedTokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cacheHits++
	rl.tokensSaved += estimatedTokens
}

// Total returns the number of calls made so far.
func (rl *AIRateLimiter) Total() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.totalCount
}

// Used returns the number of calls made to one service.
func (rl *AIRateLimiter) Used(service string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if sl, ok := rl.services[service]; ok {
		return sl.used
	}
	return 0
}

// CacheHitRate returns the percentage of lookups answered by the cache.
func (rl *AIRateLimiter) CacheHitRate() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.hitRateLocked()
}

func (rl *AIRateLimiter) hitRateLocked() float64 {
	total := rl.cacheHits + rl.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(rl.cacheHits) / float64(total) * 100
}

// GetStats returns current usage for logging and the metrics endpoint.
func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     rl.totalCount,
		"total_limit":    rl.maxTotal,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"cache_hit_rate": rl.hitRateLocked(),
		"tokens_saved":   rl.tokensSaved,
	}
	for name, sl := range rl.services {
		stats[name+"_used"] = sl.used
		stats[name+"_limit"] = sl.max
	}
	return stats
}

// LogStats writes current usage at info level.
func (rl *AIRateLimiter) LogStats() {
	stats := rl.GetStats()
	args := make([]any, 0, len(stats)*2)
	for k, v := range stats {
		args = append(args, k, v)
	}
	rl.log.Info("ai rate limiter statistics", args...)
}
