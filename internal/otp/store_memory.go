package otp

import (
	"context"
	"sync"
	"time"

	"campusvote/pkg/sentinel"
)

type entry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is the in-process fallback used in tests and when Redis is
// not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Save(_ context.Context, userID string, channel Channel, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(userID, channel)] = entry{rec: *rec, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, userID string, channel Channel, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key(userID, channel)]
	if !ok || !e.expiresAt.After(s.now()) {
		delete(s.entries, key(userID, channel))
		return sentinel.ErrNotFound
	}
	e.rec = *rec
	s.entries[key(userID, channel)] = e
	return nil
}

func (s *MemoryStore) Find(_ context.Context, userID string, channel Channel) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key(userID, channel)]
	if !ok || !e.expiresAt.After(s.now()) {
		delete(s.entries, key(userID, channel))
		return nil, sentinel.ErrNotFound
	}
	rec := e.rec
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string, channel Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(userID, channel))
	return nil
}

func key(userID string, channel Channel) string {
	return "otp:" + userID + ":" + string(channel)
}
