package ratelimit

import (
	"errors"
	"sync"
	"time"

	"github.com/deusflow/vzradar/internal/logger"
)

// ErrBudgetExhausted is returned by Use when the daily budget is spent.
var ErrBudgetExhausted = errors.New("daily LLM request budget exhausted")

// Budget caps model requests per day and keeps cache bookkeeping.
type Budget struct {
	mu          sync.Mutex
	count       int
	max         int // 0 = unlimited
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
	now         func() time.Time
}

// NewBudget creates a budget allowing max requests per 24h (0 = unlimited).
func NewBudget(max int) *Budget {
	b := &Budget{max: max, now: time.Now}
	b.resetTime = b.now().Add(24 * time.Hour)
	return b
}

// Allow reports whether another request fits the budget without consuming it.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.max <= 0 || b.count < b.max
}

// Use consumes one request.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.count >= b.max {
		logger.Warn("LLM budget reached", "used", b.count, "limit", b.max)
		return ErrBudgetExhausted
	}

	b.count++
	b.cacheMisses++
	logger.Debug("LLM usage", "used", b.count, "limit", b.max)
	return nil
}

// RecordCacheHit records an analysis served from cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) cacheHitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// Stats returns current budget statistics.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"llm_used":       b.count,
		"llm_limit":      b.max,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": b.cacheHitRate(),
		"reset_time":     b.resetTime.Format(time.RFC3339),
	}
}

// checkReset resets counters once the reset time has passed. Caller holds mu.
func (b *Budget) checkReset() {
	now := b.now()
	if now.After(b.resetTime) {
		logger.Info("resetting LLM budget", "used", b.count, "cache_hits", b.cacheHits)
		b.count = 0
		b.cacheHits = 0
		b.cacheMisses = 0
		b.resetTime = now.Add(24 * time.Hour)
	}
}
