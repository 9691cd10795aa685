package ballot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"campusvote/internal/platform/postgres"
	"campusvote/pkg/sentinel"
)

// PostgresStore persists votes in PostgreSQL. The two composite UNIQUE
// constraints on the votes table provide the exactly-once admission
// guarantee; a 23505 from either surfaces as sentinel.ErrConflict.
type PostgresStore struct {
	db postgres.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *Vote) error {
	selections, err := json.Marshal(v.Selections)
	if err != nil {
		return fmt.Errorf("marshal selections: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO votes (id, election_id, voter_user_id, enrollment_id, selections, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.ElectionID, v.VoterUserID, v.EnrollmentID, selections,
		nullIfEmpty(v.IP), nullIfEmpty(v.UserAgent), v.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEnrollment(ctx context.Context, electionID, enrollmentID string) (*Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, election_id, voter_user_id, enrollment_id, selections, ip, user_agent, created_at
		FROM votes WHERE election_id = $1 AND enrollment_id = $2`,
		electionID, enrollmentID,
	)
	v, err := scanVote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListByElection(ctx context.Context, electionID string) ([]*Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, voter_user_id, enrollment_id, selections, ip, user_agent, created_at
		FROM votes WHERE election_id = $1`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var out []*Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByElection(ctx context.Context, electionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE election_id = $1`, electionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (*Vote, error) {
	var v Vote
	var selections []byte
	var ip, userAgent sql.NullString
	err := row.Scan(&v.ID, &v.ElectionID, &v.VoterUserID, &v.EnrollmentID,
		&selections, &ip, &userAgent, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selections, &v.Selections); err != nil {
		return nil, fmt.Errorf("unmarshal selections: %w", err)
	}
	v.IP = ip.String
	v.UserAgent = userAgent.String
	return &v, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
