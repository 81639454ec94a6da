// Package publisher emits activity events to an audit.Store, either
// synchronously or through a bounded buffer drained in the background.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
	"github.com/ptkach/nomulus/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit when the async buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher captures activity events.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	clock   func() time.Time
	bufSize int
	onDrop  func()

	buffer chan audit.ActivityEvent
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue events into a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock sets the timestamp source for events emitted without one.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		p.clock = clock
	}
}

// WithDropCounter is called for every event that could not be persisted.
func WithDropCounter(fn func()) Option {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
		onDrop: func() {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make(chan audit.ActivityEvent, p.bufSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.buffer, p.logger, p.onDrop)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. In async mode it never blocks: a full buffer drops the
// event and returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.ActivityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("audit publisher closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		p.onDrop()
		return ErrBufferFull
	}
}

func (p *Publisher) List(ctx context.Context, registrarID string) ([]audit.ActivityEvent, error) {
	return p.store.ListByRegistrar(ctx, registrarID)
}

// Close drains the buffer. Safe to call more than once.
func (p *Publisher) Close() error {
	if p.buffer == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()
	<-p.done
	return nil
}
