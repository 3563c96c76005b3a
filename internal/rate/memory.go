package rate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	xrate "golang.org/x/time/rate"
)

// MemoryLimiter is the single-process counterpart of [Limiter]. Each key
// holds one token bucket per window (burst Max, refill Max per Period). Keys
// live in a bounded LRU and are forgotten after the longest window.
type MemoryLimiter struct {
	config  Config
	buckets *expirable.LRU[string, []*xrate.Limiter]
	mu      sync.Mutex
}

// NewMemory creates a [MemoryLimiter] tracking at most capacity keys.
func NewMemory(cfg Config, capacity int) *MemoryLimiter {
	if capacity <= 0 {
		capacity = 10000
	}
	var longest time.Duration
	for _, w := range cfg.Windows {
		if w.Period > longest {
			longest = w.Period
		}
	}
	return &MemoryLimiter{
		config:  cfg,
		buckets: expirable.NewLRU[string, []*xrate.Limiter](capacity, nil, longest),
	}
}

func (m *MemoryLimiter) CheckLogin(_ context.Context, identifier, ip string) error {
	for _, key := range m.keys(identifier, ip) {
		limiters, ok := m.buckets.Get(key)
		if !ok {
			continue
		}
		for _, lim := range limiters {
			if lim.Tokens() < 1 {
				return ErrRateLimited
			}
		}
	}
	return nil
}

func (m *MemoryLimiter) IncrementLogin(_ context.Context, identifier, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	limited := false
	for _, key := range m.keys(identifier, ip) {
		for _, lim := range m.bucketsFor(key) {
			if !lim.Allow() || lim.Tokens() < 1 {
				limited = true
			}
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

func (m *MemoryLimiter) ResetLogin(_ context.Context, identifier, _ string) error {
	m.buckets.Remove(loginUserKey(identifier))
	return nil
}

// bucketsFor must be called with m.mu held.
func (m *MemoryLimiter) bucketsFor(key string) []*xrate.Limiter {
	if limiters, ok := m.buckets.Get(key); ok {
		return limiters
	}
	limiters := make([]*xrate.Limiter, 0, len(m.config.Windows))
	for _, w := range m.config.Windows {
		every := w.Period / time.Duration(w.Max)
		limiters = append(limiters, xrate.NewLimiter(xrate.Every(every), w.Max))
	}
	m.buckets.Add(key, limiters)
	return limiters
}

func (m *MemoryLimiter) keys(identifier, ip string) []string {
	keys := []string{loginUserKey(identifier)}
	if m.config.EnableIPThrottle && ip != "" {
		keys = append(keys, "ip:"+ip)
	}
	return keys
}

func loginUserKey(identifier string) string {
	return "id:" + strings.ToLower(identifier)
}
