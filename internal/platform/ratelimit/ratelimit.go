// Package ratelimit provides per-key request limiting for the HTTP surface.
// The memory limiter uses a sliding window and is the single-instance
// default; the Redis limiter uses a fixed window shared across instances.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the outcome of one limiter check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Limiter answers whether a keyed request may proceed, counting it if so.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Memory is a sliding-window limiter keyed by caller identity.
type Memory struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sw := m.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		m.buckets[key] = sw
	}
	sw.cleanup(now, m.window)

	if len(sw.timestamps) >= m.limit {
		resetAt := sw.timestamps[0].Add(m.window)
		return &Result{
			Allowed:    false,
			Limit:      m.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(m.window),
	}, nil
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Redis is a fixed-window limiter backed by a shared Redis counter, for
// deployments running more than one instance.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(r.window.Seconds()))

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("ratelimit incr: %w", err)
	}

	count := int(incr.Val())
	now := time.Now()
	resetAt := now.Truncate(r.window).Add(r.window)

	if count > r.limit {
		return &Result{
			Allowed:    false,
			Limit:      r.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     r.limit,
		Remaining: r.limit - count,
		ResetAt:   resetAt,
	}, nil
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
