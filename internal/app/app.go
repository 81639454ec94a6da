// Package app assembles the registry from configuration. The EPP server and
// the operator tool both build on it so they act on the same stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/flows"
	"github.com/ptkach/nomulus/internal/flows/domain"
	"github.com/ptkach/nomulus/internal/flows/pricing"
	"github.com/ptkach/nomulus/internal/notify"
	"github.com/ptkach/nomulus/internal/notify/kafka"
	"github.com/ptkach/nomulus/internal/platform/config"
	"github.com/ptkach/nomulus/internal/platform/metrics"
	platformredis "github.com/ptkach/nomulus/internal/platform/redis"
	"github.com/ptkach/nomulus/internal/ratelimit"
	"github.com/ptkach/nomulus/internal/registry/store"
	"github.com/ptkach/nomulus/internal/registry/store/memory"
	"github.com/ptkach/nomulus/internal/registry/store/postgres"
	"github.com/ptkach/nomulus/pkg/platform/audit"
	"github.com/ptkach/nomulus/pkg/platform/audit/publisher"
	auditmemory "github.com/ptkach/nomulus/pkg/platform/audit/store/memory"
	auditpg "github.com/ptkach/nomulus/pkg/platform/audit/store/postgres"
)

const activityBuffer = 1024

// App holds the assembled registry. Close releases everything New opened.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Manager    *store.Manager
	Controller *flows.Controller
	Activity   *publisher.Publisher
	// RateLimiter is nil when registrar rate limiting is off.
	RateLimiter ratelimit.Limiter

	redis   *platformredis.Client
	checks  map[string]func(context.Context) error
	closers []func() error
}

type options struct {
	backend store.Backend
	metrics *metrics.Metrics
	clock   func() time.Time
}

type Option func(*options)

// WithBackend replaces the configured transactional store.
func WithBackend(b store.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithMetrics replaces the collectors registered on the default registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock fixes the transaction and trid clock.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New connects the configured stores and wires the flows. Optional
// dependencies with no configuration fall back to in-process versions.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: o.metrics,
		checks:  make(map[string]func(context.Context) error),
	}
	if err := a.build(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, o options) error {
	backend, err := a.backend(ctx, o.backend)
	if err != nil {
		return err
	}
	managerOpts := []store.Option{
		store.WithIsolation(store.ParseIsolation(a.Config.Transactions.Isolation)),
		store.WithRetry(a.Config.Transactions.MaxAttempts, a.Config.Transactions.BaseBackoff, a.Config.Transactions.MaxBackoff),
		store.WithTimeout(a.Config.Transactions.Timeout),
		store.WithLogger(a.Logger),
		store.WithMetrics(a.Metrics),
	}
	if o.clock != nil {
		managerOpts = append(managerOpts, store.WithClock(o.clock))
	}
	a.Manager = store.NewManager(backend, managerOpts...)

	if err := a.connectRedis(ctx); err != nil {
		return err
	}
	premiums := a.premiumLookup()
	a.RateLimiter = a.rateLimiter()
	notifier, err := a.notifier(ctx)
	if err != nil {
		return err
	}
	activity, err := a.activityStore(ctx)
	if err != nil {
		return err
	}
	a.Activity = publisher.NewPublisher(activity,
		publisher.WithAsyncBuffer(activityBuffer),
		publisher.WithLogger(a.Logger),
		publisher.WithDropCounter(a.Metrics.IncActivityDropped),
	)
	a.closers = append(a.closers, a.Activity.Close)

	runner := flows.NewRunner(a.Manager,
		flows.WithRunnerLogger(a.Logger),
		flows.WithActivityReporter(a.Activity),
	)
	renew := domain.NewRenewFlow(domain.Deps{
		Pricing:              pricing.NewLogic(premiums),
		Notifier:             notifier,
		Metrics:              a.Metrics,
		MaxRegistrationYears: a.Config.Registry.MaxRegistrationYears,
		Logger:               a.Logger,
	})
	controllerOpts := []flows.ControllerOption{
		flows.WithServerTridPrefix(a.Config.Registry.ServerTridPrefix),
		flows.WithControllerLogger(a.Logger),
		flows.WithControllerMetrics(a.Metrics),
	}
	if o.clock != nil {
		controllerOpts = append(controllerOpts, flows.WithControllerClock(o.clock))
	}
	a.Controller = flows.NewController(runner, flows.Picker{
		epp.CommandDomainRenew: renew,
	}, controllerOpts...)
	return nil
}

func (a *App) backend(ctx context.Context, override store.Backend) (store.Backend, error) {
	if override != nil {
		return override, nil
	}
	if a.Config.Database.URL == "" {
		a.Logger.WarnContext(ctx, "no database configured, registry data is kept in memory")
		return memory.New(), nil
	}
	db, err := postgres.Open(ctx, a.Config.Database.URL, a.Config.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}
	a.checks["database"] = db.PingContext
	return postgres.New(db), nil
}

func (a *App) connectRedis(ctx context.Context) error {
	client, err := platformredis.Open(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = client.Health
	return nil
}

func (a *App) premiumLookup() pricing.PremiumLookup {
	if a.redis == nil {
		return pricing.StorePremiumLookup{}
	}
	return pricing.NewRedisPremiumCache(a.redis.Client, pricing.StorePremiumLookup{},
		pricing.WithTTL(a.Config.Redis.PremiumTTL),
		pricing.WithCacheLogger(a.Logger),
		pricing.WithCacheMetrics(a.Metrics),
	)
}

// rateLimiter shares limits across replicas through Redis when it is
// configured.
func (a *App) rateLimiter() ratelimit.Limiter {
	limit := a.Config.Server.RateLimitPerMinute
	switch {
	case limit == 0:
		return nil
	case a.redis != nil:
		return ratelimit.NewRedis(a.redis.Client, limit, time.Minute)
	default:
		return ratelimit.NewWindow(limit, time.Minute)
	}
}

func (a *App) notifier(ctx context.Context) (notify.Publisher, error) {
	if len(a.Config.Kafka.Brokers) == 0 {
		return notify.NewLogPublisher(a.Logger), nil
	}
	producer, err := kafka.New(a.Config.Kafka.Brokers, a.Config.Kafka.Topic, kafka.WithLogger(a.Logger))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		producer.Close()
		return nil
	})
	if err := producer.EnsureTopic(ctx, a.Config.Kafka.Partitions, a.Config.Kafka.ReplicationFactor); err != nil {
		a.Logger.WarnContext(ctx, "could not ensure notification topic",
			"topic", a.Config.Kafka.Topic,
			"error", err,
		)
	}
	a.checks["kafka"] = producer.Health
	return producer, nil
}

func (a *App) activityStore(ctx context.Context) (audit.Store, error) {
	if a.Config.Database.ReportingURL == "" {
		return auditmemory.NewInMemoryStore(), nil
	}
	pool, err := auditpg.Open(ctx, a.Config.Database.ReportingURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	if err := auditpg.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	a.checks["reporting"] = pool.Ping
	return auditpg.New(pool), nil
}

// HealthChecks returns a probe per connected dependency.
func (a *App) HealthChecks() map[string]func(context.Context) error {
	return a.checks
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	return nil
}
