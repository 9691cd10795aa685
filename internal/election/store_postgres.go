package election

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusvote/internal/platform/postgres"
	"campusvote/pkg/sentinel"
)

// PostgresStore persists elections in PostgreSQL. Positions live in a JSONB
// column: they are value objects owned by the election and are always read
// and written together with it.
type PostgresStore struct {
	db postgres.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const electionColumns = `id, name, description, status, starts_at, ends_at, started_at, ended_at,
	auto_close_enabled, results_published, positions, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e *Election) error {
	positions, err := json.Marshal(e.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO elections (`+electionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Name, e.Description, e.Status, e.StartsAt, e.EndsAt, e.StartedAt, e.EndedAt,
		e.AutoCloseEnabled, e.ResultsPublished, positions, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert election: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Election) error {
	positions, err := json.Marshal(e.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE elections
		SET name = $2, description = $3, status = $4, starts_at = $5, ends_at = $6,
		    started_at = $7, ended_at = $8, auto_close_enabled = $9,
		    results_published = $10, positions = $11, updated_at = $12
		WHERE id = $1`,
		e.ID, e.Name, e.Description, e.Status, e.StartsAt, e.EndsAt,
		e.StartedAt, e.EndedAt, e.AutoCloseEnabled,
		e.ResultsPublished, positions, e.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update election: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Election, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1`, id)
	e, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find election: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Election, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+electionColumns+` FROM elections ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()
	return collectElections(rows)
}

func (s *PostgresStore) ListExpiredRunning(ctx context.Context, now time.Time) ([]*Election, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+electionColumns+` FROM elections
		WHERE status = $1 AND auto_close_enabled AND ends_at IS NOT NULL AND ends_at <= $2`,
		StatusRunning, now,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired elections: %w", err)
	}
	defer rows.Close()
	return collectElections(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*Election, error) {
	var e Election
	var positions []byte
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Status, &e.StartsAt, &e.EndsAt, &e.StartedAt, &e.EndedAt,
		&e.AutoCloseEnabled, &e.ResultsPublished, &positions, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(positions, &e.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	return &e, nil
}

func collectElections(rows *sql.Rows) ([]*Election, error) {
	var out []*Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
