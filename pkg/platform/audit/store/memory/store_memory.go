package memory

import (
	"context"
	"slices"
	"sync"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

// InMemoryStore keeps activity events in arrival order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.ActivityEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.TargetIDs = slices.Clone(event.TargetIDs)
	event.TLDs = slices.Clone(event.TLDs)
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByRegistrar(_ context.Context, registrarID string) ([]audit.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.ActivityEvent
	for _, e := range s.events {
		if e.RegistrarID == registrarID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns the last limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.events) - limit
	if start < 0 {
		start = 0
	}
	return slices.Clone(s.events[start:]), nil
}
