// Package store is the transactional persistence boundary of the registry.
//
// Flows see a Tx: keyed reads, filtered queries, upserts for mutable entities,
// insert-only writes for immutable records, deletes and id allocation. A Manager
// opens transactions on a Backend, retries attempts that fail with retryable
// faults, and runs post-commit hooks only once an attempt commits.
package store

import (
	"context"
	"time"

	"github.com/ptkach/nomulus/internal/registry/models"
)

// Isolation is a transaction isolation level.
type Isolation string

const (
	Serializable   Isolation = "SERIALIZABLE"
	RepeatableRead Isolation = "REPEATABLE_READ"
	ReadCommitted  Isolation = "READ_COMMITTED"
)

// ParseIsolation maps a configured name to an Isolation, defaulting to Serializable.
func ParseIsolation(s string) Isolation {
	switch Isolation(s) {
	case RepeatableRead:
		return RepeatableRead
	case ReadCommitted:
		return ReadCommitted
	default:
		return Serializable
	}
}

// Completion tells the Manager how to finish a transaction whose function
// returned without error.
type Completion int

const (
	Commit Completion = iota
	// Rollback discards every write, used for dry runs.
	Rollback
)

func (c Completion) String() string {
	if c == Rollback {
		return "rollback"
	}
	return "commit"
}

// Query selects entities of one kind. Zero-valued filters are ignored.
type Query struct {
	Kind Kind
	// Name matches Index().Name exactly.
	Name string
	// IDPrefix matches keys starting with the prefix.
	IDPrefix string
	// ActiveAt keeps only entities not deleted at this time.
	ActiveAt time.Time
}

// Kind re-exports models.Kind for query literals.
type Kind = models.Kind

// Matches reports whether e satisfies q. Backends without native filtering
// use it directly.
func (q Query) Matches(e models.Entity) bool {
	key := e.Key()
	if key.Kind != q.Kind {
		return false
	}
	idx := e.Index()
	if q.Name != "" && idx.Name != q.Name {
		return false
	}
	if q.IDPrefix != "" && (len(key.ID) < len(q.IDPrefix) || key.ID[:len(q.IDPrefix)] != q.IDPrefix) {
		return false
	}
	if !q.ActiveAt.IsZero() && !idx.ActiveAt(q.ActiveAt) {
		return false
	}
	return true
}

// Reader is the read half of a transaction.
type Reader interface {
	// Get returns sentinel.ErrNotFound when no entity exists for key.
	Get(ctx context.Context, key models.Key) (models.Entity, error)
	// Exists reports whether key is present, without loading the payload.
	Exists(ctx context.Context, key models.Key) (bool, error)
	// Query returns matching entities ordered by key id.
	Query(ctx context.Context, q Query) ([]models.Entity, error)
}

// Writer is the write half of a transaction. Writes become visible to later
// reads in the same transaction and to other transactions only on commit.
type Writer interface {
	// Put inserts or replaces a mutable entity.
	Put(ctx context.Context, e models.Entity) error
	// Insert writes an immutable entity; it fails with sentinel.ErrAlreadyExists
	// if the key is taken.
	Insert(ctx context.Context, e models.Entity) error
	Delete(ctx context.Context, key models.Key) error
	// AllocateID draws from the registry-wide monotonic id sequence. Ids are
	// not returned on rollback.
	AllocateID(ctx context.Context) (int64, error)
}

// Tx is the view a flow has of one transaction attempt.
type Tx interface {
	Reader
	Writer
	// Now is the transaction time, fixed for the attempt.
	Now() time.Time
	Isolation() Isolation
	// AfterCommit registers fn to run once this attempt commits. Hooks of
	// rolled back or retried attempts are discarded.
	AfterCommit(fn func(ctx context.Context))
}

// Attempt is one backend transaction.
type Attempt interface {
	Reader
	Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Backend begins attempts at a given isolation.
type Backend interface {
	Begin(ctx context.Context, isolation Isolation) (Attempt, error)
}
