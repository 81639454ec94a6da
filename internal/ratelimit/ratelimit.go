// Package ratelimit bounds how many EPP commands a registrar may send per
// window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected caller should wait.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Window is an in-process sliding window limiter. Keys idle for a whole
// window are swept at most once per window.
type Window struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	buckets   map[string][]time.Time
	lastSweep time.Time
}

type WindowOption func(*Window)

func WithClock(clock func() time.Time) WindowOption {
	return func(w *Window) {
		w.clock = clock
	}
}

func NewWindow(limit int, window time.Duration, opts ...WindowOption) *Window {
	w := &Window{
		limit:   limit,
		window:  window,
		clock:   time.Now,
		buckets: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Window) Allow(_ context.Context, key string) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock()
	cutoff := now.Add(-w.window)
	if !w.lastSweep.After(cutoff) {
		w.sweep(cutoff)
		w.lastSweep = now
	}
	stamps := expire(w.buckets[key], cutoff)
	if len(stamps) >= w.limit {
		w.buckets[key] = stamps
		return Result{Limit: w.limit, ResetAt: stamps[0].Add(w.window)}, nil
	}
	stamps = append(stamps, now)
	w.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     w.limit,
		Remaining: w.limit - len(stamps),
		ResetAt:   stamps[0].Add(w.window),
	}, nil
}

// sweep deletes every bucket whose newest timestamp is at or before cutoff.
func (w *Window) sweep(cutoff time.Time) {
	for key, stamps := range w.buckets {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(w.buckets, key)
		}
	}
}

// expire drops timestamps at or before cutoff. Timestamps are ascending.
func expire(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

const redisKeyPrefix = "registry:ratelimit:"

// Redis is a fixed window limiter shared by every replica.
type Redis struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	clock  func() time.Time
}

func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window, clock: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	now := r.clock()
	start := now.Truncate(r.window)
	redisKey := redisKeyPrefix + key + ":" + start.UTC().Format(time.RFC3339)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	res := Result{Limit: r.limit, ResetAt: start.Add(r.window)}
	if count > r.limit {
		return res, nil
	}
	res.Allowed = true
	res.Remaining = r.limit - count
	return res, nil
}
