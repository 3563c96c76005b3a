package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window allows Max failed attempts per Period.
type Window struct {
	Max    int
	Period time.Duration
}

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix           string
	Windows          []Window
	EnableIPThrottle bool
}

// Limiter enforces per-identifier and per-IP failed-login budgets using
// Redis fixed-window counters, one counter per configured window.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "aa"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when the identifier or IP has exhausted
// any window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	for _, key := range l.loginKeys(identifier, ip) {
		for _, w := range l.config.Windows {
			if err := l.checkCounter(ctx, l.windowKey(key, w), w.Max); err != nil {
				return err
			}
		}
	}
	return nil
}

// IncrementLogin records a failed login. It returns ErrRateLimited when this
// failure exhausts a window.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	limited := false
	for _, key := range l.loginKeys(identifier, ip) {
		for _, w := range l.config.Windows {
			count, err := l.incrementWithTTL(ctx, l.windowKey(key, w), w.Period)
			if err != nil {
				return err
			}
			if count >= int64(w.Max) {
				limited = true
			}
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the identifier counters after a successful login. IP
// counters are left alone so one good account cannot launder a sprayed IP.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	keys := make([]string, 0, len(l.config.Windows))
	for _, w := range l.config.Windows {
		keys = append(keys, l.windowKey(l.userKey(identifier), w))
	}
	if len(keys) == 0 {
		return nil
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetLoginAttempts returns the identifier's counter in the shortest window.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetLoginAttempts(ctx context.Context, identifier string) (int, error) {
	if len(l.config.Windows) == 0 {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.windowKey(l.userKey(identifier), l.config.Windows[0])).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) loginKeys(identifier, ip string) []string {
	keys := []string{l.userKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.config.Prefix+":ali:"+ip)
	}
	return keys
}

func (l *Limiter) userKey(identifier string) string {
	return l.config.Prefix + ":al:" + strings.ToLower(identifier)
}

func (l *Limiter) windowKey(key string, w Window) string {
	return key + ":" + strconv.FormatInt(int64(w.Period/time.Second), 10)
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
