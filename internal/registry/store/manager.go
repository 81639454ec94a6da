package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ptkach/nomulus/internal/platform/metrics"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/sentinel"
	txcontext "github.com/ptkach/nomulus/pkg/platform/tx"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 25 * time.Millisecond
	defaultMaxBackoff  = time.Second
	defaultTxTimeout   = 10 * time.Second
)

// TxFunc is the body of a transaction. Returning an error rolls the attempt
// back; returning Rollback without error discards the writes on purpose.
type TxFunc func(ctx context.Context, tx Tx) (Completion, error)

// Manager runs TxFuncs against a Backend.
type Manager struct {
	backend     Backend
	isolation   Isolation
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	timeout     time.Duration
	clock       func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// Option configures the Manager.
type Option func(*Manager)

// WithIsolation sets the default isolation level.
func WithIsolation(iso Isolation) Option {
	return func(m *Manager) {
		m.isolation = iso
	}
}

// WithRetry bounds retries of retryable faults.
func WithRetry(maxAttempts int, baseBackoff, maxBackoff time.Duration) Option {
	return func(m *Manager) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if baseBackoff > 0 {
			m.baseBackoff = baseBackoff
		}
		if maxBackoff >= m.baseBackoff {
			m.maxBackoff = maxBackoff
		}
	}
}

// WithTimeout bounds a whole transaction, retries included, when the caller's
// context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithClock sets the source of transaction time.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager constructs a Manager over backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		isolation:   Serializable,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		timeout:     defaultTxTimeout,
		clock:       time.Now,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/ptkach/nomulus/internal/registry/store"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TxOption configures one Transact call.
type TxOption func(*txOptions)

type txOptions struct {
	isolation Isolation
}

// WithIsolationOverride runs this transaction at iso instead of the default.
func WithIsolationOverride(iso Isolation) TxOption {
	return func(o *txOptions) {
		if iso != "" {
			o.isolation = iso
		}
	}
}

// IsRetryable reports whether err is a transient fault worth another attempt.
func IsRetryable(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeConflict) ||
		errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrUnavailable)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := txcontext.From[*txn](ctx)
	return ok
}

// Current returns the transaction open in ctx, if any.
func Current(ctx context.Context) (Tx, bool) {
	t, ok := txcontext.From[*txn](ctx)
	if !ok {
		return nil, false
	}
	return t, true
}

// Transact runs fn in a transaction and reports how it completed.
//
// When ctx already carries a transaction fn joins it: no new attempt is
// opened, and a Rollback completion marks the outer transaction rollback-only.
// Otherwise each attempt gets a fresh backend transaction and fn is re-run on
// retryable faults with exponential backoff and jitter. Errors returned by fn
// that are not retryable end the transaction immediately.
func (m *Manager) Transact(ctx context.Context, fn TxFunc, opts ...TxOption) (Completion, error) {
	if outer, ok := txcontext.From[*txn](ctx); ok {
		completion, err := fn(ctx, outer)
		if err == nil && completion == Rollback {
			outer.rollbackOnly = true
		}
		return completion, err
	}

	o := txOptions{isolation: m.isolation}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return Rollback, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	ctx, span := m.tracer.Start(ctx, "registry.transact",
		trace.WithAttributes(attribute.String("registry.tx.isolation", string(o.isolation))))
	defer span.End()

	attempts := 0
	policy := retrypolicy.NewBuilder[Completion]().
		HandleIf(func(_ Completion, err error) bool {
			return IsRetryable(err)
		}).
		WithMaxAttempts(m.maxAttempts).
		WithBackoff(m.baseBackoff, m.maxBackoff).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[Completion]) {
			m.metrics.IncTransactionRetry(string(o.isolation))
			m.logger.DebugContext(ctx, "retrying transaction",
				"attempt", e.Attempts(),
				"isolation", o.isolation,
				"error", e.LastError(),
			)
		}).
		Build()

	completion, err := failsafe.With[Completion](policy).WithContext(ctx).Get(func() (Completion, error) {
		attempts++
		return m.attempt(ctx, o.isolation, fn)
	})

	m.metrics.ObserveTransaction(attempts)
	span.SetAttributes(attribute.Int("registry.tx.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		switch {
		case IsRetryable(err):
			return Rollback, dErrors.Wrap(err, dErrors.CodeUnavailable, "transaction retries exhausted")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return Rollback, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted")
		}
		return Rollback, err
	}
	span.SetAttributes(attribute.String("registry.tx.completion", completion.String()))
	return completion, nil
}

func (m *Manager) attempt(ctx context.Context, iso Isolation, fn TxFunc) (completion Completion, err error) {
	backendTx, err := m.backend.Begin(ctx, iso)
	if err != nil {
		return Rollback, err
	}
	t := &txn{Attempt: backendTx, now: m.clock().UTC(), isolation: iso}

	defer func() {
		if r := recover(); r != nil {
			_ = backendTx.Rollback(ctx)
			panic(r)
		}
	}()

	completion, err = fn(txcontext.WithTx(ctx, t), t)
	if err != nil {
		if rbErr := backendTx.Rollback(ctx); rbErr != nil {
			m.logger.WarnContext(ctx, "rollback failed", "error", rbErr)
		}
		return Rollback, err
	}

	if completion == Rollback || t.rollbackOnly {
		if rbErr := backendTx.Rollback(ctx); rbErr != nil {
			m.logger.WarnContext(ctx, "rollback failed", "error", rbErr)
		}
		return Rollback, nil
	}

	if err := backendTx.Commit(ctx); err != nil {
		return Rollback, err
	}

	for _, hook := range t.hooks {
		hook(ctx)
	}
	return Commit, nil
}

// txn decorates a backend attempt with transaction time and post-commit hooks.
type txn struct {
	Attempt
	now          time.Time
	isolation    Isolation
	hooks        []func(ctx context.Context)
	rollbackOnly bool
}

func (t *txn) Now() time.Time { return t.now }

func (t *txn) Isolation() Isolation { return t.isolation }

func (t *txn) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}
