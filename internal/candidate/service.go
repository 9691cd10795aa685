package candidate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusvote/internal/election"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// UserDirectory is the slice of the user store this service needs.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*user.User, error)
}

// ElectionLookup resolves elections for mutability checks and listings.
type ElectionLookup interface {
	FindByID(ctx context.Context, id string) (*election.Election, error)
}

// Service exposes candidate profile reads for the voting UI and the
// candidate's own profile management.
type Service struct {
	profiles  Store
	users     UserDirectory
	elections ElectionLookup
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(profiles Store, users UserDirectory, elections ElectionLookup, logger *slog.Logger) *Service {
	return &Service{profiles: profiles, users: users, elections: elections, logger: logger, now: time.Now}
}

// View is a profile joined with its owning user's public fields, shaped for
// the voting UI.
type View struct {
	CandidateUserID string   `json:"candidateUserId"`
	FullName        string   `json:"fullName"`
	EnrollmentID    string   `json:"enrollmentId,omitempty"`
	Department      string   `json:"department,omitempty"`
	SemesterOrYear  string   `json:"semesterOrYear,omitempty"`
	Profile         *Profile `json:"profile"`
}

// ListApproved returns approved, active candidates for an election,
// optionally narrowed to one position. Profiles whose owner is no longer an
// approved candidate are dropped.
func (s *Service) ListApproved(ctx context.Context, electionID, positionID string) ([]View, error) {
	if _, err := s.elections.FindByID(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}

	var profiles []*Profile
	var err error
	if positionID != "" {
		profiles, err = s.profiles.ListByPosition(ctx, electionID, positionID)
	} else {
		profiles, err = s.profiles.ListByElection(ctx, electionID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidate profiles")
	}
	if len(profiles) == 0 {
		return []View{}, nil
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate users")
	}
	byID := make(map[string]*user.User, len(users))
	for _, u := range users {
		if u.ApprovedCandidate() {
			byID[u.ID] = u
		}
	}

	views := make([]View, 0, len(profiles))
	for _, p := range profiles {
		u, ok := byID[p.UserID]
		if !ok {
			continue
		}
		views = append(views, View{
			CandidateUserID: u.ID,
			FullName:        u.FullName,
			EnrollmentID:    u.EnrollmentID,
			Department:      u.Department,
			SemesterOrYear:  u.SemesterOrYear,
			Profile:         p,
		})
	}
	return views, nil
}

// GetOwn returns the caller's profile in the given election.
func (s *Service) GetOwn(ctx context.Context, userID, electionID string) (*Profile, error) {
	p, err := s.profiles.FindByUserAndElection(ctx, userID, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate profile")
	}
	return p, nil
}

// UpdateParams uses pointers so absent fields stay untouched.
type UpdateParams struct {
	PositionID *string
	PhotoURL   *string
	SymbolURL  *string
	Manifesto  *string
}

// UpdateOwn lets a candidate edit their profile within the locking rules:
// the manifesto is editable only while the election is DRAFT/SCHEDULED, and
// position, photo, and symbol are frozen once the user is APPROVED.
func (s *Service) UpdateOwn(ctx context.Context, userID, electionID string, params UpdateParams) (*Profile, error) {
	p, err := s.GetOwn(ctx, userID, electionID)
	if err != nil {
		return nil, err
	}
	e, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	locked := owner.ApprovalStatus == user.ApprovalApproved
	if locked && (params.PositionID != nil || params.PhotoURL != nil || params.SymbolURL != nil) {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			"position, photo, and symbol are locked after approval")
	}

	if params.PositionID != nil {
		if e.Position(*params.PositionID) == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid positionId for this election")
		}
		p.PositionID = *params.PositionID
	}
	if params.PhotoURL != nil {
		p.PhotoURL = *params.PhotoURL
	}
	if params.SymbolURL != nil {
		p.SymbolURL = *params.SymbolURL
	}
	if params.Manifesto != nil {
		if !e.ConfigMutable() {
			return nil, dErrors.New(dErrors.CodePreconditionFailed,
				"manifesto is editable only before the election starts")
		}
		if len(*params.Manifesto) > ManifestoMaxLength {
			return nil, dErrors.New(dErrors.CodeBadRequest, "manifesto exceeds 4000 characters")
		}
		p.Manifesto = *params.Manifesto
	}

	p.UpdatedAt = s.now()
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update candidate profile")
	}
	return p, nil
}
