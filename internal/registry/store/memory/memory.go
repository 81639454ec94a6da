// Package memory is an in-process store.Backend with optimistic concurrency.
//
// Attempts buffer writes and remember the version of every record they read.
// At commit a SERIALIZABLE attempt fails if anything it read (including the set
// of records a query scanned) changed since; weaker levels only check the
// records they write. Failed validation surfaces as a retryable conflict.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/sentinel"
)

type record struct {
	entity  models.Entity
	version int64
}

// Store holds committed records.
type Store struct {
	mu       sync.Mutex
	records  map[models.Key]record
	kindVers map[models.Kind]int64
	clock    int64
	sequence atomic.Int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		records:  make(map[models.Key]record),
		kindVers: make(map[models.Kind]int64),
	}
}

// Begin opens an attempt.
func (s *Store) Begin(ctx context.Context, isolation store.Isolation) (store.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &attempt{
		store:     s,
		isolation: isolation,
		reads:     make(map[models.Key]int64),
		kindReads: make(map[models.Kind]int64),
		writes:    make(map[models.Key]write),
	}, nil
}

// Seed commits entities directly, bypassing transactions. For fixtures.
func (s *Store) Seed(entities ...models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		s.commitLocked(e.Key(), write{entity: e.CloneEntity()})
	}
}

// Snapshot returns copies of every committed entity of kind, ordered by id.
func (s *Store) Snapshot(kind models.Kind) []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Entity
	for k, r := range s.records {
		if k.Kind == kind {
			out = append(out, r.entity.CloneEntity())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().ID < out[j].Key().ID })
	return out
}

func (s *Store) commitLocked(key models.Key, w write) {
	s.clock++
	_, existed := s.records[key]
	if w.delete {
		delete(s.records, key)
	} else {
		s.records[key] = record{entity: w.entity, version: s.clock}
	}
	if existed == w.delete {
		// Membership of the kind changed; invalidate scans.
		s.kindVers[key.Kind] = s.clock
	}
}

func (s *Store) versionLocked(key models.Key) int64 {
	if r, ok := s.records[key]; ok {
		return r.version
	}
	return 0
}

type write struct {
	entity models.Entity
	delete bool
	insert bool
	// base is the committed version the write was made against.
	base int64
}

type attempt struct {
	store     *Store
	isolation store.Isolation
	reads     map[models.Key]int64
	kindReads map[models.Kind]int64
	writes    map[models.Key]write
	done      bool
}

func (a *attempt) Get(ctx context.Context, key models.Key) (models.Entity, error) {
	if w, ok := a.writes[key]; ok {
		if w.delete {
			return nil, sentinel.ErrNotFound
		}
		return w.entity.CloneEntity(), nil
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	r, ok := a.store.records[key]
	a.trackRead(key, r.version)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.entity.CloneEntity(), nil
}

func (a *attempt) Exists(ctx context.Context, key models.Key) (bool, error) {
	_, err := a.Get(ctx, key)
	if err == sentinel.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (a *attempt) Query(ctx context.Context, q store.Query) ([]models.Entity, error) {
	merged := make(map[models.Key]models.Entity)
	a.store.mu.Lock()
	if _, seen := a.kindReads[q.Kind]; !seen {
		a.kindReads[q.Kind] = a.store.kindVers[q.Kind]
	}
	for k, r := range a.store.records {
		if k.Kind != q.Kind {
			continue
		}
		a.trackRead(k, r.version)
		merged[k] = r.entity
	}
	a.store.mu.Unlock()

	for k, w := range a.writes {
		if k.Kind != q.Kind {
			continue
		}
		if w.delete {
			delete(merged, k)
			continue
		}
		merged[k] = w.entity
	}

	var out []models.Entity
	for _, e := range merged {
		if q.Matches(e) {
			out = append(out, e.CloneEntity())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().ID < out[j].Key().ID })
	return out, nil
}

// trackRead must be called with the store lock held.
func (a *attempt) trackRead(key models.Key, version int64) {
	if _, seen := a.reads[key]; !seen {
		a.reads[key] = version
	}
}

func (a *attempt) baseVersion(key models.Key) int64 {
	if w, ok := a.writes[key]; ok {
		return w.base
	}
	if v, ok := a.reads[key]; ok {
		return v
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return a.store.versionLocked(key)
}

func (a *attempt) Put(ctx context.Context, e models.Entity) error {
	key := e.Key()
	prev, had := a.writes[key]
	a.writes[key] = write{entity: e.CloneEntity(), base: a.baseVersion(key), insert: had && prev.insert}
	return nil
}

func (a *attempt) Insert(ctx context.Context, e models.Entity) error {
	key := e.Key()
	if w, ok := a.writes[key]; ok && !w.delete {
		return dErrors.Wrap(sentinel.ErrAlreadyExists, dErrors.CodeInvariantViolation, "insert "+key.String())
	}
	base := a.baseVersion(key)
	if _, ok := a.writes[key]; !ok && base != 0 {
		return dErrors.Wrap(sentinel.ErrAlreadyExists, dErrors.CodeInvariantViolation, "insert "+key.String())
	}
	a.writes[key] = write{entity: e.CloneEntity(), base: base, insert: true}
	return nil
}

func (a *attempt) Delete(ctx context.Context, key models.Key) error {
	a.writes[key] = write{delete: true, base: a.baseVersion(key)}
	return nil
}

func (a *attempt) AllocateID(ctx context.Context) (int64, error) {
	return a.store.sequence.Add(1), nil
}

func (a *attempt) Commit(ctx context.Context) error {
	if a.done {
		return dErrors.New(dErrors.CodeInternal, "attempt already finished")
	}
	a.done = true
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.isolation == store.Serializable {
		for key, v := range a.reads {
			if s.versionLocked(key) != v {
				return conflict(key.String())
			}
		}
		for kind, v := range a.kindReads {
			if s.kindVers[kind] != v {
				return conflict("scan of " + string(kind))
			}
		}
	}
	for key, w := range a.writes {
		if s.versionLocked(key) != w.base {
			return conflict(key.String())
		}
	}

	keys := make([]models.Key, 0, len(a.writes))
	for k := range a.writes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return strings.Compare(keys[i].String(), keys[j].String()) < 0 })
	for _, k := range keys {
		s.commitLocked(k, a.writes[k])
	}
	return nil
}

func (a *attempt) Rollback(ctx context.Context) error {
	a.done = true
	a.writes = nil
	return nil
}

func conflict(what string) error {
	return dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, "concurrent modification of "+what)
}
