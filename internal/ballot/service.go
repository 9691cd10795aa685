package ballot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/platform/metrics"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// ElectionStore is the slice of election persistence admission needs:
// reads, plus writes for the defensive end transition.
type ElectionStore interface {
	FindByID(ctx context.Context, id string) (*election.Election, error)
	Update(ctx context.Context, e *election.Election) error
}

// CandidateDirectory resolves the users behind selected candidate ids.
type CandidateDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]*user.User, error)
}

// ProfileStore resolves (candidate, position) bindings for an election.
type ProfileStore interface {
	ListByElection(ctx context.Context, electionID string) ([]*candidate.Profile, error)
}

// Service is the ballot admission control: it validates a voter's ballot
// against current election state and persists it exactly once. Admission is
// all-or-nothing: the first failed check aborts with no side effect apart
// from the defensive election end transition.
type Service struct {
	votes      Store
	elections  ElectionStore
	candidates CandidateDirectory
	profiles   ProfileStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(votes Store, elections ElectionStore, candidates CandidateDirectory, profiles ProfileStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		votes:      votes,
		elections:  elections,
		candidates: candidates,
		profiles:   profiles,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("campusvote/ballot"),
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Meta carries request metadata stored alongside the vote.
type Meta struct {
	IP        string
	UserAgent string
}

// Admit validates and persists one ballot for the voter. The validation
// sequence is ordered: election running, positions configured, ballot
// complete, candidates legitimate, bindings valid, then the atomic insert
// whose uniqueness constraints reject a duplicate ballot.
func (s *Service) Admit(ctx context.Context, electionID string, voter *user.User, selections []Selection, meta Meta) (*Vote, error) {
	ctx, span := s.tracer.Start(ctx, "ballot.Admit", trace.WithAttributes(
		attribute.String("election.id", electionID),
	))
	defer span.End()

	if voter == nil || !voter.EligibleVoter() {
		s.reject("voter_ineligible")
		return nil, dErrors.New(dErrors.CodeForbidden, "only approved, verified voters may vote")
	}
	if voter.EnrollmentID == "" {
		s.reject("enrollment_missing")
		return nil, dErrors.New(dErrors.CodeBadRequest, "enrollment ID missing on voter profile")
	}

	e, err := s.loadElection(ctx, electionID)
	if err != nil {
		s.reject("election_unavailable")
		return nil, err
	}
	if err := s.requireRunning(ctx, e); err != nil {
		s.reject("election_not_running")
		return nil, err
	}
	if len(e.Positions) == 0 {
		s.reject("no_positions")
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "election has no positions configured")
	}

	if err := checkCompleteness(e, selections); err != nil {
		s.reject("incomplete_ballot")
		return nil, err
	}
	if err := s.checkCandidates(ctx, selections); err != nil {
		s.reject("invalid_candidate")
		return nil, err
	}
	if err := s.checkBindings(ctx, e.ID, selections); err != nil {
		s.reject("invalid_binding")
		return nil, err
	}

	vote := &Vote{
		ID:           uuid.NewString(),
		ElectionID:   e.ID,
		VoterUserID:  voter.ID,
		EnrollmentID: voter.EnrollmentID,
		Selections:   append([]Selection(nil), selections...),
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		CreatedAt:    s.now(),
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.VoteConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "you have already voted in this election")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
	}

	if s.metrics != nil {
		s.metrics.VotesCast.Inc()
	}
	s.logger.InfoContext(ctx, "ballot admitted",
		"election_id", e.ID, "voter_id", voter.ID, "selections", len(selections))
	return vote, nil
}

// Status reports whether the voter's ballot is in, keyed by enrollment ID
// like the duplicate backstop. Never exposes selections.
func (s *Service) Status(ctx context.Context, electionID string, voter *user.User) (*Status, error) {
	if voter == nil || voter.EnrollmentID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "enrollment ID missing on voter profile")
	}
	v, err := s.votes.FindByEnrollment(ctx, electionID, voter.EnrollmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Status{HasVoted: false}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up vote status")
	}
	votedAt := v.CreatedAt
	return &Status{HasVoted: true, VotedAt: &votedAt}, nil
}

func (s *Service) loadElection(ctx context.Context, id string) (*election.Election, error) {
	e, err := s.elections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return e, nil
}

// requireRunning enforces the RUNNING gate. When the deadline has elapsed
// but the sweep hasn't fired yet, the election is ended here and the vote
// rejected. A ballot is never admitted past the deadline.
func (s *Service) requireRunning(ctx context.Context, e *election.Election) error {
	if e.Status != election.StatusRunning {
		return dErrors.New(dErrors.CodePreconditionFailed, "voting is not allowed: election is not running")
	}
	now := s.now()
	if e.EndIfExpired(now) {
		e.UpdatedAt = now
		if err := s.elections.Update(ctx, e); err != nil {
			// The reject below stands either way; the sweep will retry the
			// transition on its next pass.
			s.logger.ErrorContext(ctx, "failed to persist defensive election end",
				"election_id", e.ID, "error", err)
		}
		return dErrors.New(dErrors.CodePreconditionFailed, "voting is closed: election has ended")
	}
	return nil
}

// checkCompleteness requires the selected position set to equal the
// configured position set exactly. The offending ids ride along in the
// error details so the UI can point at the problem.
func checkCompleteness(e *election.Election, selections []Selection) error {
	configured := make(map[string]bool, len(e.Positions))
	for _, p := range e.Positions {
		configured[p.ID] = true
	}

	selected := make(map[string]int, len(selections))
	for _, sel := range selections {
		selected[sel.PositionID]++
	}

	var missing []string
	for _, p := range e.Positions {
		if selected[p.ID] == 0 {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "incomplete ballot: vote for all positions").
			WithDetails(map[string]any{"missingPositionIds": missing})
	}

	var extra []string
	for _, sel := range selections {
		if !configured[sel.PositionID] {
			extra = append(extra, sel.PositionID)
		}
	}
	if len(extra) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid ballot: contains unknown positionId").
			WithDetails(map[string]any{"extraPositionIds": extra})
	}

	var duplicates []string
	for id, count := range selected {
		if count > 1 {
			duplicates = append(duplicates, id)
		}
	}
	if len(duplicates) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid ballot: duplicate positionId").
			WithDetails(map[string]any{"duplicatePositionIds": duplicates})
	}
	return nil
}

// checkCandidates requires every selected candidate to be an approved,
// active CANDIDATE user.
func (s *Service) checkCandidates(ctx context.Context, selections []Selection) error {
	unique := make(map[string]bool, len(selections))
	var ids []string
	for _, sel := range selections {
		if !unique[sel.CandidateUserID] {
			unique[sel.CandidateUserID] = true
			ids = append(ids, sel.CandidateUserID)
		}
	}

	users, err := s.candidates.FindByIDs(ctx, ids)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidates")
	}
	approved := make(map[string]bool, len(users))
	for _, u := range users {
		if u.ApprovedCandidate() {
			approved[u.ID] = true
		}
	}
	for _, sel := range selections {
		if !approved[sel.CandidateUserID] {
			return dErrors.New(dErrors.CodeValidation,
				"invalid candidate selection: candidate not approved or not found").
				WithDetails(map[string]any{"candidateUserId": sel.CandidateUserID})
		}
	}
	return nil
}

// checkBindings requires every (candidate, position) pair to match a
// registered profile in this election.
func (s *Service) checkBindings(ctx context.Context, electionID string, selections []Selection) error {
	profiles, err := s.profiles.ListByElection(ctx, electionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate profiles")
	}
	allowed := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		allowed[p.BindingKey()] = true
	}
	for _, sel := range selections {
		if !allowed[sel.CandidateUserID+"::"+sel.PositionID] {
			return dErrors.New(dErrors.CodeValidation,
				"invalid selection: candidate is not contesting the chosen position").
				WithDetails(map[string]any{
					"candidateUserId": sel.CandidateUserID,
					"positionId":      sel.PositionID,
				})
		}
	}
	return nil
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.BallotsRejected.WithLabelValues(reason).Inc()
	}
}
