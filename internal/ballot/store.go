package ballot

import "context"

// Store abstracts vote persistence. Create must be atomic with respect to
// concurrent admissions for the same voter: when two calls race, exactly
// one succeeds and the other observes sentinel.ErrConflict. This is the one
// place where the datastore's constraint enforcement substitutes for
// application-level locking.
type Store interface {
	Create(ctx context.Context, v *Vote) error
	FindByEnrollment(ctx context.Context, electionID, enrollmentID string) (*Vote, error)
	ListByElection(ctx context.Context, electionID string) ([]*Vote, error)
	CountByElection(ctx context.Context, electionID string) (int, error)
}
