// Package ratelimit provides per-key token bucket rate limiting for the
// reasoner's MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limit is the refill rate and burst of one bucket.
type Limit struct {
	PerMinute float64 `json:"per_minute" yaml:"per_minute"`
	Burst     int     `json:"burst" yaml:"burst"`
}

// Limiter is a token bucket per key. Every bucket starts full.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	nowFunc func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter refilling rate tokens per second up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   float64(burst),
		nowFunc: time.Now,
	}
}

// FromLimit creates a limiter from a per-minute limit.
func FromLimit(l Limit) *Limiter {
	return NewLimiter(l.PerMinute/60.0, l.Burst)
}

// Allow takes a token from key's bucket and reports whether one was left.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate, l.burst)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *bucket) refill(now time.Time, rate, burst float64) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(burst, b.tokens+rate*elapsed)
	b.last = now
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// DefaultLimits are the per-tool limits of the MCP server. Running cycles
// and writing snapshots are the expensive calls.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"nar_input":    {PerMinute: 120, Burst: 20},
		"nar_cycles":   {PerMinute: 30, Burst: 5},
		"nar_concepts": {PerMinute: 60, Burst: 10},
		"nar_concept":  {PerMinute: 120, Burst: 20},
		"nar_snapshot": {PerMinute: 5, Burst: 2},
	}
}

// NewToolLimiters builds limiters for limits. Tools missing from limits
// are unlimited.
func NewToolLimiters(limits map[string]Limit) ToolLimiters {
	out := make(ToolLimiters, len(limits))
	for tool, l := range limits {
		out[tool] = FromLimit(l)
	}
	return out
}

// CheckLimit returns an error wrapping ErrRateLimited when tool has no
// token left.
func CheckLimit(limiters ToolLimiters, tool string) error {
	limiter, ok := limiters[tool]
	if !ok {
		return nil
	}
	if !limiter.Allow(tool) {
		return fmt.Errorf("%s: %w, please try again shortly", tool, ErrRateLimited)
	}
	return nil
}
