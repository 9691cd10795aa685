package candidate

import (
	"context"
	"sync"

	"campusvote/pkg/sentinel"
)

// MemoryStore keeps candidate profiles in process, enforcing the
// one-profile-per-(user, election) rule.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (s *MemoryStore) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.profiles {
		if existing.UserID == p.UserID && existing.ElectionID == p.ElectionID {
			return sentinel.ErrConflict
		}
	}
	s.profiles[p.ID] = *p
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.ID] = *p
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *MemoryStore) FindByUserAndElection(_ context.Context, userID, electionID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.UserID == userID && p.ElectionID == electionID {
			out := p
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByElection(_ context.Context, electionID string) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Profile
	for _, p := range s.profiles {
		if p.ElectionID == electionID {
			c := p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByPosition(_ context.Context, electionID, positionID string) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Profile
	for _, p := range s.profiles {
		if p.ElectionID == electionID && p.PositionID == positionID {
			c := p
			out = append(out, &c)
		}
	}
	return out, nil
}
