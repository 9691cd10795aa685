package user

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"campusvote/pkg/sentinel"
)

// MemoryStore keeps users in process, enforcing the same uniqueness rules
// as the Postgres store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts(u) {
		return sentinel.ErrConflict
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.conflicts(u) {
		return sentinel.ErrConflict
	}
	s.users[u.ID] = *u
	return nil
}

// Delete removes a user. Used as the undo half of the candidate
// registration unit of work when the profile write fails.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := u
	return &out, nil
}

func (s *MemoryStore) FindByIdentifier(_ context.Context, identifier string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lowered := strings.ToLower(identifier)
	for _, u := range s.users {
		if u.Email == lowered ||
			(u.EnrollmentID != "" && u.EnrollmentID == identifier) ||
			(u.AdminID != "" && u.AdminID == identifier) {
			out := u
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lowered := strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == lowered {
			out := u
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByMobile(_ context.Context, mobile string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Mobile == mobile {
			out := u
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByResetTokenHash(_ context.Context, hash []byte) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if len(u.ResetTokenHash) > 0 && bytes.Equal(u.ResetTokenHash, hash) {
			out := u
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByIDs(_ context.Context, ids []string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.ApprovalStatus != filter.Status {
			continue
		}
		c := u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CountEligibleVoters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, u := range s.users {
		if u.EligibleVoter() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) conflicts(u *User) bool {
	for id, existing := range s.users {
		if id == u.ID {
			continue
		}
		if existing.Email == u.Email || existing.Mobile == u.Mobile {
			return true
		}
		if u.EnrollmentID != "" && existing.EnrollmentID == u.EnrollmentID {
			return true
		}
		if u.AdminID != "" && existing.AdminID == u.AdminID {
			return true
		}
	}
	return false
}
