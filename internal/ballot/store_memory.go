package ballot

import (
	"context"
	"sync"

	"campusvote/pkg/sentinel"
)

// MemoryStore keeps votes in process. The single mutex makes Create atomic,
// matching the uniqueness guarantees of the Postgres store.
type MemoryStore struct {
	mu           sync.RWMutex
	votes        map[string]Vote
	byVoter      map[string]string // electionID+voterUserID -> voteID
	byEnrollment map[string]string // electionID+enrollmentID -> voteID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		votes:        make(map[string]Vote),
		byVoter:      make(map[string]string),
		byEnrollment: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, v *Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voterKey := v.ElectionID + "::" + v.VoterUserID
	enrollmentKey := v.ElectionID + "::" + v.EnrollmentID
	if _, ok := s.byVoter[voterKey]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byEnrollment[enrollmentKey]; ok {
		return sentinel.ErrConflict
	}
	stored := *v
	stored.Selections = append([]Selection(nil), v.Selections...)
	s.votes[v.ID] = stored
	s.byVoter[voterKey] = v.ID
	s.byEnrollment[enrollmentKey] = v.ID
	return nil
}

func (s *MemoryStore) FindByEnrollment(_ context.Context, electionID, enrollmentID string) (*Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEnrollment[electionID+"::"+enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	v := s.votes[id]
	out := v
	out.Selections = append([]Selection(nil), v.Selections...)
	return &out, nil
}

func (s *MemoryStore) ListByElection(_ context.Context, electionID string) ([]*Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vote
	for _, v := range s.votes {
		if v.ElectionID != electionID {
			continue
		}
		c := v
		c.Selections = append([]Selection(nil), v.Selections...)
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) CountByElection(_ context.Context, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, v := range s.votes {
		if v.ElectionID == electionID {
			count++
		}
	}
	return count, nil
}
