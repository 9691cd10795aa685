package election

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusvote/pkg/sentinel"
)

// MemoryStore keeps elections in process. It backs unit tests and
// development runs without a database, enforcing the same constraints as
// the Postgres store.
type MemoryStore struct {
	mu        sync.RWMutex
	elections map[string]Election
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{elections: make(map[string]Election)}
}

func (s *MemoryStore) Create(_ context.Context, e *Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.elections {
		if existing.Name == e.Name {
			return sentinel.ErrConflict
		}
	}
	s.elections[e.ID] = clone(e)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, e *Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.elections {
		if id != e.ID && existing.Name == e.Name {
			return sentinel.ErrConflict
		}
	}
	s.elections[e.ID] = clone(e)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&e)
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Election, 0, len(s.elections))
	for _, e := range s.elections {
		c := clone(&e)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListExpiredRunning(_ context.Context, now time.Time) ([]*Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Election
	for _, e := range s.elections {
		if e.Status == StatusRunning && e.AutoCloseEnabled && e.Expired(now) {
			c := clone(&e)
			out = append(out, &c)
		}
	}
	return out, nil
}

func clone(e *Election) Election {
	c := *e
	c.Positions = append([]Position(nil), e.Positions...)
	return c
}
