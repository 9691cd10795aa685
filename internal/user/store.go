package user

import "context"

// ListFilter narrows listing to a role and optionally an approval status.
type ListFilter struct {
	Role   Role
	Status ApprovalStatus
}

// Store abstracts user persistence. Implementations return
// sentinel.ErrNotFound for missing users and sentinel.ErrConflict when a
// uniqueness constraint (email, mobile, enrollmentId, adminId) rejects a
// write.
type Store interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByIdentifier resolves a login identifier: email, enrollmentId, or
	// adminId.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByMobile(ctx context.Context, mobile string) (*User, error)
	FindByResetTokenHash(ctx context.Context, hash []byte) (*User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*User, error)
	List(ctx context.Context, filter ListFilter) ([]*User, error)
	// CountEligibleVoters counts approved, active, fully verified voters.
	// Evaluated live at tabulation time.
	CountEligibleVoters(ctx context.Context) (int, error)
}
