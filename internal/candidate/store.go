package candidate

import "context"

// Store abstracts candidate profile persistence. Implementations return
// sentinel.ErrNotFound for missing profiles and sentinel.ErrConflict when
// the (user, election) uniqueness constraint rejects a write.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByUserAndElection(ctx context.Context, userID, electionID string) (*Profile, error)
	ListByElection(ctx context.Context, electionID string) ([]*Profile, error)
	ListByPosition(ctx context.Context, electionID, positionID string) ([]*Profile, error)
}
