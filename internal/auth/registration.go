package auth

import (
	"context"
	"database/sql"
	"fmt"

	"campusvote/internal/candidate"
	"campusvote/internal/user"
)

// RegistrationStore persists a candidate signup as one unit of work: the
// user account and their candidate profile land together or not at all.
type RegistrationStore interface {
	CreateCandidate(ctx context.Context, u *user.User, p *candidate.Profile) error
}

// PostgresRegistration wraps both inserts in a single transaction.
type PostgresRegistration struct {
	db       *sql.DB
	users    *user.PostgresStore
	profiles *candidate.PostgresStore
}

func NewPostgresRegistration(db *sql.DB, users *user.PostgresStore, profiles *candidate.PostgresStore) *PostgresRegistration {
	return &PostgresRegistration{db: db, users: users, profiles: profiles}
}

func (r *PostgresRegistration) CreateCandidate(ctx context.Context, u *user.User, p *candidate.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.users.WithTx(tx).Create(ctx, u); err != nil {
		return err
	}
	if err := r.profiles.WithTx(tx).Create(ctx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// MemoryRegistration approximates the transaction against in-memory
// stores: a failed profile insert undoes the user insert.
type MemoryRegistration struct {
	users    *user.MemoryStore
	profiles *candidate.MemoryStore
}

func NewMemoryRegistration(users *user.MemoryStore, profiles *candidate.MemoryStore) *MemoryRegistration {
	return &MemoryRegistration{users: users, profiles: profiles}
}

func (r *MemoryRegistration) CreateCandidate(ctx context.Context, u *user.User, p *candidate.Profile) error {
	if err := r.users.Create(ctx, u); err != nil {
		return err
	}
	if err := r.profiles.Create(ctx, p); err != nil {
		if delErr := r.users.Delete(ctx, u.ID); delErr != nil {
			return fmt.Errorf("undo user create: %w", delErr)
		}
		return err
	}
	return nil
}
