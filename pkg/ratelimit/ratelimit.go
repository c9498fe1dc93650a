// Package ratelimit 按 key 的令牌桶限流
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if the request is allowed for the given key and limit
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则，Rate 个令牌每 Period
type Limit struct {
	Rate   float64
	Period time.Duration
	Burst  int
}

func (l Limit) every() rate.Limit {
	if l.Period <= 0 {
		return rate.Inf
	}
	return rate.Limit(l.Rate / l.Period.Seconds())
}

// Result 单次检查结果
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter 进程内限流器，每个 key 一个 rate.Limiter，空闲超过 ttl 的 key 在检查时清理
type MemoryRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter(ttl time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Allow 消耗一个令牌
func (m *MemoryRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	e, ok := m.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(limit.every(), limit.Burst)}
		m.entries[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{Allowed: false, RetryAfter: delay}, nil
	}
	return &Result{
		Allowed:   true,
		Remaining: int(e.limiter.TokensAt(now)),
	}, nil
}

// Len 当前跟踪的 key 数量
func (m *MemoryRateLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryRateLimiter) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}
