package election

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// Service owns the election lifecycle. Status transitions are monotonic
// (DRAFT -> SCHEDULED -> RUNNING -> ENDED); RUNNING and ENDED are reachable
// only through Start/Stop/EndIfExpired, never through a plain update.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams carries the admin's initial election configuration.
type CreateParams struct {
	Name             string
	Description      string
	AutoCloseEnabled bool
	EndsAt           *time.Time
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Election, error) {
	if p.Name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "election name is required")
	}
	now := s.now()
	e := &Election{
		ID:               uuid.NewString(),
		Name:             p.Name,
		Description:      p.Description,
		Status:           StatusDraft,
		AutoCloseEnabled: p.AutoCloseEnabled,
		EndsAt:           p.EndsAt,
		Positions:        []Position{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an election with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}
	return e, nil
}

// UpdateParams uses pointers so absent fields stay untouched.
type UpdateParams struct {
	Name             *string
	Description      *string
	AutoCloseEnabled *bool
	StartsAt         *time.Time
	EndsAt           *time.Time
	Status           *Status
	ResultsPublished *bool
}

func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*Election, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "election name is required")
		}
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.AutoCloseEnabled != nil {
		e.AutoCloseEnabled = *p.AutoCloseEnabled
	}
	if p.StartsAt != nil {
		e.StartsAt = p.StartsAt
	}
	if p.EndsAt != nil {
		e.EndsAt = p.EndsAt
	}
	if p.Status != nil {
		if *p.Status == StatusRunning || *p.Status == StatusEnded {
			return nil, dErrors.New(dErrors.CodeBadRequest, "use start/stop to change RUNNING/ENDED")
		}
		if !validTransition(e.Status, *p.Status) {
			return nil, dErrors.Newf(dErrors.CodePreconditionFailed,
				"cannot move election from %s to %s", e.Status, *p.Status)
		}
		e.Status = *p.Status
	}
	if p.ResultsPublished != nil {
		if e.Status != StatusEnded {
			return nil, dErrors.New(dErrors.CodePreconditionFailed,
				"results can be published only after the election ends")
		}
		e.ResultsPublished = *p.ResultsPublished
	}
	if e.StartsAt != nil && e.EndsAt != nil && !e.EndsAt.After(*e.StartsAt) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "endsAt must be after startsAt")
	}

	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Election, error) {
	return s.get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Election, error) {
	elections, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	return elections, nil
}

// PositionParams configures a contested seat.
type PositionParams struct {
	Title      string
	Order      int
	MaxWinners int
}

func (s *Service) AddPosition(ctx context.Context, electionID string, p PositionParams) (*Position, error) {
	if p.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "position title is required")
	}
	if p.MaxWinners == 0 {
		p.MaxWinners = 1
	}
	if p.MaxWinners < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "maxWinners must be at least 1")
	}

	e, err := s.get(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !e.ConfigMutable() {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			"positions cannot change once the election is RUNNING or ENDED")
	}

	pos := Position{
		ID:         uuid.NewString(),
		Title:      p.Title,
		Order:      p.Order,
		MaxWinners: p.MaxWinners,
	}
	e.Positions = append(e.Positions, pos)
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return &pos, nil
}

// PositionUpdate uses pointers so absent fields stay untouched.
type PositionUpdate struct {
	Title      *string
	Order      *int
	MaxWinners *int
}

func (s *Service) UpdatePosition(ctx context.Context, electionID, positionID string, p PositionUpdate) (*Position, error) {
	e, err := s.get(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !e.ConfigMutable() {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			"positions cannot change once the election is RUNNING or ENDED")
	}
	pos := e.Position(positionID)
	if pos == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "position not found")
	}
	if p.Title != nil {
		if *p.Title == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "position title is required")
		}
		pos.Title = *p.Title
	}
	if p.Order != nil {
		pos.Order = *p.Order
	}
	if p.MaxWinners != nil {
		if *p.MaxWinners < 1 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "maxWinners must be at least 1")
		}
		pos.MaxWinners = *p.MaxWinners
	}
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	out := *pos
	return &out, nil
}

func (s *Service) RemovePosition(ctx context.Context, electionID, positionID string) error {
	e, err := s.get(ctx, electionID)
	if err != nil {
		return err
	}
	if !e.ConfigMutable() {
		return dErrors.New(dErrors.CodePreconditionFailed,
			"positions cannot change once the election is RUNNING or ENDED")
	}
	kept := e.Positions[:0]
	found := false
	for _, pos := range e.Positions {
		if pos.ID == positionID {
			found = true
			continue
		}
		kept = append(kept, pos)
	}
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "position not found")
	}
	e.Positions = kept
	return s.save(ctx, e)
}

// Start moves the election to RUNNING. Requires at least one position and a
// future deadline.
func (s *Service) Start(ctx context.Context, id string) (*Election, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch e.Status {
	case StatusRunning:
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "election is already running")
	case StatusEnded:
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "election has already ended")
	}
	if len(e.Positions) == 0 {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "add at least one position before starting")
	}
	if e.EndsAt == nil {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "set endsAt before starting")
	}
	now := s.now()
	if !e.EndsAt.After(now) {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "endsAt must be in the future when starting")
	}

	if e.StartsAt == nil {
		e.StartsAt = &now
	}
	e.Status = StatusRunning
	e.StartedAt = &now
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "election started", "election_id", e.ID, "ends_at", e.EndsAt)
	return e, nil
}

// Stop ends a RUNNING election immediately.
func (s *Service) Stop(ctx context.Context, id string) (*Election, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusRunning {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "only RUNNING elections can be stopped")
	}
	now := s.now()
	e.Status = StatusEnded
	e.EndedAt = &now
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "election stopped", "election_id", e.ID)
	return e, nil
}

// SetPublished toggles candidate-facing result visibility. Allowed only
// once the election has ended.
func (s *Service) SetPublished(ctx context.Context, id string, published bool) (*Election, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusEnded {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			"results can be published only after the election ends")
	}
	e.ResultsPublished = published
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// EndExpired applies the idempotent end transition to every expired RUNNING
// election. Called by the sweeper; safe to race with the defensive
// in-request check in ballot admission because both converge on ENDED.
func (s *Service) EndExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredRunning(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired elections")
	}
	ended := 0
	for _, e := range expired {
		if !e.EndIfExpired(now) {
			continue
		}
		if err := s.save(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "failed to auto-close election",
				"election_id", e.ID, "error", err)
			continue
		}
		ended++
		s.logger.InfoContext(ctx, "election auto-closed", "election_id", e.ID, "name", e.Name)
	}
	return ended, nil
}

func (s *Service) get(ctx context.Context, id string) (*Election, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return e, nil
}

func (s *Service) save(ctx context.Context, e *Election) error {
	e.UpdatedAt = s.now()
	if err := s.store.Update(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "an election with this name already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save election")
	}
	return nil
}

func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	order := map[Status]int{
		StatusDraft:     0,
		StatusScheduled: 1,
		StatusRunning:   2,
		StatusEnded:     3,
	}
	return order[to] > order[from]
}
