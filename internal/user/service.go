package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// Service covers the admin-facing account workflows: approval decisions and
// account listings. Registration lives in the auth package.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	users, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// SetApproval records an admin's approval decision. Only voter and
// candidate accounts go through the approval workflow.
func (s *Service) SetApproval(ctx context.Context, userID string, status ApprovalStatus, note, adminID string) (*User, error) {
	if status != ApprovalApproved && status != ApprovalRejected {
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be APPROVED or REJECTED")
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleVoter && u.Role != RoleCandidate {
		return nil, dErrors.New(dErrors.CodeBadRequest, "only VOTER/CANDIDATE accounts require approval")
	}

	now := s.now()
	u.ApprovalStatus = status
	u.ApprovalNote = note
	u.ApprovedAt = &now
	u.ApprovedBy = adminID
	u.UpdatedAt = now

	if err := s.store.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update approval status")
	}
	s.logger.InfoContext(ctx, "approval decision recorded",
		"user_id", u.ID, "role", u.Role, "status", status, "admin_id", adminID)
	return u, nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return u, nil
}

// CountEligibleVoters exposes the live eligible-voter count used for
// turnout. Note this is evaluated at call time, not snapshotted at
// election start.
func (s *Service) CountEligibleVoters(ctx context.Context) (int, error) {
	count, err := s.store.CountEligibleVoters(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count eligible voters")
	}
	return count, nil
}
