package candidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusvote/internal/platform/postgres"
	"campusvote/pkg/sentinel"
)

// PostgresStore persists candidate profiles in PostgreSQL.
type PostgresStore struct {
	db postgres.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store scoped to the given transaction. Candidate
// registration uses this to create the user and profile atomically.
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const profileColumns = `id, user_id, election_id, position_id, photo_url, symbol_url, manifesto, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidate_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.ElectionID, p.PositionID,
		nullIfEmpty(p.PhotoURL), nullIfEmpty(p.SymbolURL), nullIfEmpty(p.Manifesto),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert candidate profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Profile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE candidate_profiles
		SET position_id = $2, photo_url = $3, symbol_url = $4, manifesto = $5, updated_at = $6
		WHERE id = $1`,
		p.ID, p.PositionID, nullIfEmpty(p.PhotoURL), nullIfEmpty(p.SymbolURL),
		nullIfEmpty(p.Manifesto), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update candidate profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update candidate profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	return s.findOne(ctx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE id = $1`, id)
}

func (s *PostgresStore) FindByUserAndElection(ctx context.Context, userID, electionID string) (*Profile, error) {
	return s.findOne(ctx, `
		SELECT `+profileColumns+` FROM candidate_profiles
		WHERE user_id = $1 AND election_id = $2`, userID, electionID)
}

func (s *PostgresStore) ListByElection(ctx context.Context, electionID string) ([]*Profile, error) {
	return s.list(ctx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE election_id = $1`, electionID)
}

func (s *PostgresStore) ListByPosition(ctx context.Context, electionID, positionID string) ([]*Profile, error) {
	return s.list(ctx, `
		SELECT `+profileColumns+` FROM candidate_profiles
		WHERE election_id = $1 AND position_id = $2`, electionID, positionID)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidate profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var photoURL, symbolURL, manifesto sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.ElectionID, &p.PositionID,
		&photoURL, &symbolURL, &manifesto, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PhotoURL = photoURL.String
	p.SymbolURL = symbolURL.String
	p.Manifesto = manifesto.String
	return &p, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
