package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	"github.com/ptkach/nomulus/internal/registry/store/memory"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/sentinel"
)

// flakyBackend fails the next n commits with a retryable conflict.
type flakyBackend struct {
	*memory.Store
	mu         sync.Mutex
	failures   int
	isolations []store.Isolation
}

func (b *flakyBackend) Begin(ctx context.Context, iso store.Isolation) (store.Attempt, error) {
	b.mu.Lock()
	b.isolations = append(b.isolations, iso)
	b.mu.Unlock()
	a, err := b.Store.Begin(ctx, iso)
	if err != nil {
		return nil, err
	}
	return &flakyAttempt{Attempt: a, backend: b}, nil
}

type flakyAttempt struct {
	store.Attempt
	backend *flakyBackend
}

func (a *flakyAttempt) Commit(ctx context.Context) error {
	a.backend.mu.Lock()
	fail := a.backend.failures > 0
	if fail {
		a.backend.failures--
	}
	a.backend.mu.Unlock()
	if fail {
		_ = a.Attempt.Rollback(ctx)
		return dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, "injected serialization failure")
	}
	return a.Attempt.Commit(ctx)
}

type ManagerSuite struct {
	suite.Suite
	backend *flakyBackend
	manager *store.Manager
	ctx     context.Context
	now     time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	s.backend = &flakyBackend{Store: memory.New()}
	s.manager = store.NewManager(s.backend,
		store.WithRetry(3, time.Millisecond, 2*time.Millisecond),
		store.WithClock(func() time.Time { return s.now }),
	)
}

func registrar(id string) *models.Registrar {
	return &models.Registrar{ID: id, State: models.RegistrarActive}
}

func (s *ManagerSuite) load(id string) (*models.Registrar, bool) {
	var (
		out   *models.Registrar
		found bool
	)
	_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		r, ok, err := store.LoadIfPresent[*models.Registrar](ctx, tx, models.RegistrarKey(id))
		out, found = r, ok
		return store.Commit, err
	})
	s.Require().NoError(err)
	return out, found
}

func (s *ManagerSuite) TestCommitAndRollback() {
	s.Run("commit persists writes", func() {
		completion, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			s.True(store.InTransaction(ctx))
			s.Equal(s.now, tx.Now())
			return store.Commit, tx.Put(ctx, registrar("committed"))
		})
		s.Require().NoError(err)
		s.Equal(store.Commit, completion)
		_, found := s.load("committed")
		s.True(found)
	})

	s.Run("rollback completion discards writes", func() {
		completion, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			return store.Rollback, tx.Put(ctx, registrar("discarded"))
		})
		s.Require().NoError(err)
		s.Equal(store.Rollback, completion)
		_, found := s.load("discarded")
		s.False(found)
	})

	s.Run("error rolls back and is returned unchanged", func() {
		boom := errors.New("flow failed")
		_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			_ = tx.Put(ctx, registrar("failed"))
			return store.Commit, boom
		})
		s.Require().ErrorIs(err, boom)
		_, found := s.load("failed")
		s.False(found)
	})
}

func (s *ManagerSuite) TestRetries() {
	s.Run("retries conflicts and runs hooks once", func() {
		s.backend.failures = 2
		attempts, hooks := 0, 0
		_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			attempts++
			tx.AfterCommit(func(context.Context) { hooks++ })
			return store.Commit, tx.Put(ctx, registrar("retried"))
		})
		s.Require().NoError(err)
		s.Equal(3, attempts)
		s.Equal(1, hooks)
	})

	s.Run("exhausted retries surface as unavailable", func() {
		s.backend.failures = 10
		attempts := 0
		_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			attempts++
			tx.AfterCommit(func(context.Context) { s.Fail("hook of failed attempt ran") })
			return store.Commit, tx.Put(ctx, registrar("exhausted"))
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnavailable))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(3, attempts)
		s.backend.failures = 0
	})

	s.Run("non retryable errors are not retried", func() {
		attempts := 0
		_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
			attempts++
			return store.Commit, dErrors.New(dErrors.CodeInvariantViolation, "nope")
		})
		s.Require().Error(err)
		s.Equal(1, attempts)
	})
}

func (s *ManagerSuite) TestNestedTransactions() {
	s.Run("inner call joins the outer transaction", func() {
		_, err := s.manager.Transact(s.ctx, func(ctx context.Context, outer store.Tx) (store.Completion, error) {
			_, err := s.manager.Transact(ctx, func(ctx context.Context, inner store.Tx) (store.Completion, error) {
				s.Same(outer, inner)
				return store.Commit, inner.Put(ctx, registrar("nested"))
			})
			return store.Commit, err
		})
		s.Require().NoError(err)
		_, found := s.load("nested")
		s.True(found)
		s.Len(s.backend.isolations, 2, "nested call must not open another attempt")
	})

	s.Run("inner rollback marks the outer rollback-only", func() {
		completion, err := s.manager.Transact(s.ctx, func(ctx context.Context, outer store.Tx) (store.Completion, error) {
			if err := outer.Put(ctx, registrar("outer")); err != nil {
				return store.Commit, err
			}
			_, err := s.manager.Transact(ctx, func(ctx context.Context, inner store.Tx) (store.Completion, error) {
				return store.Rollback, nil
			})
			return store.Commit, err
		})
		s.Require().NoError(err)
		s.Equal(store.Rollback, completion)
		_, found := s.load("outer")
		s.False(found)
	})
}

func (s *ManagerSuite) TestIsolationOverride() {
	s.backend.isolations = nil
	_, err := s.manager.Transact(s.ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		s.Equal(store.ReadCommitted, tx.Isolation())
		return store.Commit, nil
	}, store.WithIsolationOverride(store.ReadCommitted))
	s.Require().NoError(err)
	s.Equal([]store.Isolation{store.ReadCommitted}, s.backend.isolations)
}

func (s *ManagerSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.manager.Transact(ctx, func(ctx context.Context, tx store.Tx) (store.Completion, error) {
		s.Fail("must not run")
		return store.Commit, nil
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeTimeout))
}

// TestConcurrentIncrements verifies serializable retries lose no update.
func TestConcurrentIncrements(t *testing.T) {
	backend := memory.New()
	backend.Seed(registrar("counter"))
	manager := store.NewManager(backend, store.WithRetry(50, time.Microsecond, time.Millisecond))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.Transact(context.Background(), func(ctx context.Context, tx store.Tx) (store.Completion, error) {
				r, err := store.Load[*models.Registrar](ctx, tx, models.RegistrarKey("counter"))
				if err != nil {
					return store.Commit, err
				}
				r.AllowedTLDs = append(r.AllowedTLDs, fmt.Sprintf("tld%d", i))
				return store.Commit, tx.Put(ctx, r)
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}
	}

	got := backend.Snapshot(models.KindRegistrar)
	if len(got) != 1 || len(got[0].(*models.Registrar).AllowedTLDs) != workers {
		t.Fatalf("lost updates: %+v", got)
	}
}
