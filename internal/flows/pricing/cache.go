package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ptkach/nomulus/internal/platform/metrics"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
)

const (
	defaultPremiumTTL = 10 * time.Minute
	premiumKeyPrefix  = "registry:premium:"
	// notPremium caches the absence of a premium entry.
	notPremium = "-"
)

// RedisPremiumCache caches another PremiumLookup in Redis. Redis faults trip
// a circuit breaker; while it is open, or when a call fails, lookups go
// straight to the delegate. A miss always reads through the caller's own
// transaction so the premium entry lands in its read set; only the cache
// write is shared between concurrent misses.
type RedisPremiumCache struct {
	client   redis.Cmdable
	delegate PremiumLookup
	ttl      time.Duration
	breaker  circuitbreaker.CircuitBreaker[string]
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type CacheOption func(*RedisPremiumCache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *RedisPremiumCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisPremiumCache) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *RedisPremiumCache) {
		c.metrics = m
	}
}

// WithBreaker replaces the default breaker, which opens after 5 failures in
// 10 calls and probes again after 30s.
func WithBreaker(breaker circuitbreaker.CircuitBreaker[string]) CacheOption {
	return func(c *RedisPremiumCache) {
		c.breaker = breaker
	}
}

func NewRedisPremiumCache(client redis.Cmdable, delegate PremiumLookup, opts ...CacheOption) *RedisPremiumCache {
	c := &RedisPremiumCache{
		client:   client,
		delegate: delegate,
		ttl:      defaultPremiumTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.NewBuilder[string]().
			HandleIf(func(_ string, err error) bool {
				return err != nil && !errors.Is(err, redis.Nil)
			}).
			WithFailureThresholdRatio(5, 10).
			WithDelay(30 * time.Second).
			WithSuccessThreshold(1).
			OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
				c.logger.Warn("premium cache circuit breaker state change",
					"from_state", stateName(e.OldState),
					"to_state", stateName(e.NewState),
				)
			}).
			Build()
	}
	return c
}

func (c *RedisPremiumCache) PremiumPrice(ctx context.Context, r store.Reader, listName, label string) (*models.Money, error) {
	key := premiumKeyPrefix + listName + ":" + label

	cached, err := failsafe.With[string](c.breaker).WithContext(ctx).Get(func() (string, error) {
		return c.client.Get(ctx, key).Result()
	})
	switch {
	case err == nil:
		if price, ok := decodePrice(cached); ok {
			c.metrics.IncPremiumCacheLookup("hit")
			return price, nil
		}
		c.metrics.IncPremiumCacheLookup("miss")
	case errors.Is(err, redis.Nil):
		c.metrics.IncPremiumCacheLookup("miss")
	default:
		c.metrics.IncPremiumCacheLookup("error")
		c.logger.DebugContext(ctx, "premium cache unavailable", "key", key, "error", err)
		return c.delegate.PremiumPrice(ctx, r, listName, label)
	}

	price, err := c.delegate.PremiumPrice(ctx, r, listName, label)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, price)
	return price, nil
}

func (c *RedisPremiumCache) store(ctx context.Context, key string, price *models.Money) {
	value := notPremium
	if price != nil {
		b, err := json.Marshal(price)
		if err != nil {
			return
		}
		value = string(b)
	}
	// Concurrent misses that read the same value write it once.
	_, err, _ := c.group.Do(key+"="+value, func() (any, error) {
		return failsafe.With[string](c.breaker).WithContext(ctx).Get(func() (string, error) {
			return c.client.Set(ctx, key, value, c.ttl).Result()
		})
	})
	if err != nil {
		c.logger.DebugContext(ctx, "premium cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops the cached price of label, for premium list updates.
func (c *RedisPremiumCache) Invalidate(ctx context.Context, listName, label string) error {
	return c.client.Del(ctx, premiumKeyPrefix+listName+":"+label).Err()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half_open"
	default:
		return "closed"
	}
}

func decodePrice(v string) (*models.Money, bool) {
	if v == notPremium {
		return nil, true
	}
	var m models.Money
	if err := json.Unmarshal([]byte(v), &m); err != nil {
		return nil, false
	}
	return &m, true
}
