package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"campusvote/internal/platform/postgres"
	"campusvote/pkg/sentinel"
)

// PostgresStore persists users in PostgreSQL. enrollment_id and admin_id
// are stored as NULL when absent so the unique constraints only apply when
// the identifier is present.
type PostgresStore struct {
	db postgres.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store scoped to the given transaction.
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const userColumns = `id, full_name, email, mobile, password_hash, role, approval_status,
	approval_note, approved_at, approved_by, enrollment_id, scholar_number, department,
	semester_or_year, admin_id, admin_type, is_email_verified, is_mobile_verified,
	is_active, last_login_at, reset_token_hash, reset_expires_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)`,
		u.ID, u.FullName, u.Email, u.Mobile, u.PasswordHash, u.Role, u.ApprovalStatus,
		nullIfEmpty(u.ApprovalNote), u.ApprovedAt, nullIfEmpty(u.ApprovedBy),
		nullIfEmpty(u.EnrollmentID), nullIfEmpty(u.ScholarNumber), nullIfEmpty(u.Department),
		nullIfEmpty(u.SemesterOrYear), nullIfEmpty(u.AdminID), nullIfEmpty(string(u.AdminType)),
		u.IsEmailVerified, u.IsMobileVerified, u.IsActive, u.LastLoginAt,
		u.ResetTokenHash, u.ResetExpiresAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $2, email = $3, mobile = $4, password_hash = $5, role = $6,
		    approval_status = $7, approval_note = $8, approved_at = $9, approved_by = $10,
		    enrollment_id = $11, scholar_number = $12, department = $13, semester_or_year = $14,
		    admin_id = $15, admin_type = $16, is_email_verified = $17, is_mobile_verified = $18,
		    is_active = $19, last_login_at = $20, reset_token_hash = $21, reset_expires_at = $22,
		    updated_at = $23
		WHERE id = $1`,
		u.ID, u.FullName, u.Email, u.Mobile, u.PasswordHash, u.Role,
		u.ApprovalStatus, nullIfEmpty(u.ApprovalNote), u.ApprovedAt, nullIfEmpty(u.ApprovedBy),
		nullIfEmpty(u.EnrollmentID), nullIfEmpty(u.ScholarNumber), nullIfEmpty(u.Department),
		nullIfEmpty(u.SemesterOrYear), nullIfEmpty(u.AdminID), nullIfEmpty(string(u.AdminType)),
		u.IsEmailVerified, u.IsMobileVerified,
		u.IsActive, u.LastLoginAt, u.ResetTokenHash, u.ResetExpiresAt,
		u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a user. Used as the undo half of the candidate
// registration unit of work when Postgres transactions are unavailable.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return s.findOne(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 OR enrollment_id = $2 OR admin_id = $2`,
		strings.ToLower(identifier), identifier)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (s *PostgresStore) FindByMobile(ctx context.Context, mobile string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE mobile = $1`, mobile)
}

func (s *PostgresStore) FindByResetTokenHash(ctx context.Context, hash []byte) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, hash)
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND approval_status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *PostgresStore) CountEligibleVoters(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE role = $1 AND approval_status = $2 AND is_active
		  AND is_email_verified AND is_mobile_verified`,
		RoleVoter, ApprovalApproved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count eligible voters: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var approvalNote, approvedBy, enrollmentID, scholarNumber sql.NullString
	var department, semesterOrYear, adminID, adminType sql.NullString
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role, &u.ApprovalStatus,
		&approvalNote, &u.ApprovedAt, &approvedBy, &enrollmentID, &scholarNumber, &department,
		&semesterOrYear, &adminID, &adminType, &u.IsEmailVerified, &u.IsMobileVerified,
		&u.IsActive, &u.LastLoginAt, &u.ResetTokenHash, &u.ResetExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ApprovalNote = approvalNote.String
	u.ApprovedBy = approvedBy.String
	u.EnrollmentID = enrollmentID.String
	u.ScholarNumber = scholarNumber.String
	u.Department = department.String
	u.SemesterOrYear = semesterOrYear.String
	u.AdminID = adminID.String
	u.AdminType = AdminType(adminType.String)
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]*User, error) {
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
