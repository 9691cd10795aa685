package election

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "campusvote/pkg/domain-errors"
)

func newTestService(now time.Time) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, slog.New(slog.DiscardHandler)).
		WithClock(func() time.Time { return now })
	return svc, store
}

func strPtr(s string) *string        { return &s }
func boolPtr(b bool) *bool           { return &b }
func statusPtr(s Status) *Status     { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestCreateElection(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	endsAt := now.Add(48 * time.Hour)

	e, err := svc.Create(context.Background(), CreateParams{
		Name:             "Student Council 2026",
		Description:      "Annual student body election",
		AutoCloseEnabled: true,
		EndsAt:           &endsAt,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, StatusDraft, e.Status)
	assert.True(t, e.AutoCloseEnabled)
	assert.False(t, e.ResultsPublished)
	assert.Empty(t, e.Positions)
	assert.Equal(t, now, e.CreatedAt)
}

func TestCreateElectionRequiresName(t *testing.T) {
	svc, _ := newTestService(time.Now())
	_, err := svc.Create(context.Background(), CreateParams{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestCreateElectionDuplicateName(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestUpdateElection(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)

	e, err = svc.Update(ctx, e.ID, UpdateParams{
		Name:        strPtr("Spring Vote 2026"),
		Description: strPtr("Updated"),
		StartsAt:    timePtr(now.Add(time.Hour)),
		EndsAt:      timePtr(now.Add(24 * time.Hour)),
		Status:      statusPtr(StatusScheduled),
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring Vote 2026", e.Name)
	assert.Equal(t, StatusScheduled, e.Status)
}

func TestUpdateElectionStatusRules(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		code dErrors.Code
	}{
		{"cannot jump to running", StatusDraft, StatusRunning, dErrors.CodeBadRequest},
		{"cannot jump to ended", StatusDraft, StatusEnded, dErrors.CodeBadRequest},
		{"cannot move backwards", StatusScheduled, StatusDraft, dErrors.CodePreconditionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(time.Now())
			ctx := context.Background()
			e := &Election{ID: "e1", Name: "E " + tc.name, Status: tc.from}
			require.NoError(t, store.Create(ctx, e))

			_, err := svc.Update(ctx, "e1", UpdateParams{Status: statusPtr(tc.to)})
			require.Error(t, err)
			assert.Equal(t, tc.code, dErrors.CodeOf(err))
		})
	}
}

func TestUpdateElectionRejectsInvertedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, e.ID, UpdateParams{
		StartsAt: timePtr(now.Add(2 * time.Hour)),
		EndsAt:   timePtr(now.Add(time.Hour)),
	})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestUpdateElectionPublishGate(t *testing.T) {
	svc, store := newTestService(time.Now())
	ctx := context.Background()
	e := &Election{ID: "e1", Name: "Spring Vote", Status: StatusRunning}
	require.NoError(t, store.Create(ctx, e))

	_, err := svc.Update(ctx, "e1", UpdateParams{ResultsPublished: boolPtr(true)})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
}

func TestAddPosition(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)

	pos, err := svc.AddPosition(ctx, e.ID, PositionParams{Title: "President", Order: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, 1, pos.MaxWinners, "maxWinners defaults to 1")

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, "President", got.Positions[0].Title)
}

func TestAddPositionValidation(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)

	_, err = svc.AddPosition(ctx, e.ID, PositionParams{})
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))

	_, err = svc.AddPosition(ctx, e.ID, PositionParams{Title: "President", MaxWinners: -1})
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestPositionsImmutableOnceRunning(t *testing.T) {
	svc, store := newTestService(time.Now())
	ctx := context.Background()
	e := &Election{
		ID:     "e1",
		Name:   "Spring Vote",
		Status: StatusRunning,
		Positions: []Position{
			{ID: "p1", Title: "President", MaxWinners: 1},
		},
	}
	require.NoError(t, store.Create(ctx, e))

	_, err := svc.AddPosition(ctx, "e1", PositionParams{Title: "Secretary"})
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))

	_, err = svc.UpdatePosition(ctx, "e1", "p1", PositionUpdate{Title: strPtr("Chair")})
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))

	err = svc.RemovePosition(ctx, "e1", "p1")
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
}

func TestUpdateAndRemovePosition(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote"})
	require.NoError(t, err)
	pres, err := svc.AddPosition(ctx, e.ID, PositionParams{Title: "President", Order: 1})
	require.NoError(t, err)
	sec, err := svc.AddPosition(ctx, e.ID, PositionParams{Title: "Secretary", Order: 2})
	require.NoError(t, err)

	two := 2
	got, err := svc.UpdatePosition(ctx, e.ID, sec.ID, PositionUpdate{
		Title:      strPtr("General Secretary"),
		MaxWinners: &two,
	})
	require.NoError(t, err)
	assert.Equal(t, "General Secretary", got.Title)
	assert.Equal(t, 2, got.MaxWinners)

	require.NoError(t, svc.RemovePosition(ctx, e.ID, pres.ID))
	after, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, after.Positions, 1)
	assert.Equal(t, sec.ID, after.Positions[0].ID)

	err = svc.RemovePosition(ctx, e.ID, "no-such-position")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestStartElection(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()
	endsAt := now.Add(24 * time.Hour)
	e, err := svc.Create(ctx, CreateParams{Name: "Spring Vote", EndsAt: &endsAt})
	require.NoError(t, err)
	_, err = svc.AddPosition(ctx, e.ID, PositionParams{Title: "President"})
	require.NoError(t, err)

	started, err := svc.Start(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, now, *started.StartedAt)
	require.NotNil(t, started.StartsAt, "startsAt is backfilled when unset")
}

func TestStartElectionPreconditions(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name     string
		election Election
	}{
		{"no positions", Election{Status: StatusDraft, EndsAt: &future}},
		{"no deadline", Election{Status: StatusDraft,
			Positions: []Position{{ID: "p1", Title: "President", MaxWinners: 1}}}},
		{"deadline in the past", Election{Status: StatusDraft, EndsAt: &past,
			Positions: []Position{{ID: "p1", Title: "President", MaxWinners: 1}}}},
		{"already running", Election{Status: StatusRunning, EndsAt: &future,
			Positions: []Position{{ID: "p1", Title: "President", MaxWinners: 1}}}},
		{"already ended", Election{Status: StatusEnded, EndsAt: &future,
			Positions: []Position{{ID: "p1", Title: "President", MaxWinners: 1}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(now)
			e := tc.election
			e.ID = "e1"
			e.Name = "E " + tc.name
			require.NoError(t, store.Create(ctx, &e))

			_, err := svc.Start(ctx, "e1")
			require.Error(t, err)
			assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
		})
	}
}

func TestStopElection(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestService(now)
	ctx := context.Background()
	endsAt := now.Add(time.Hour)
	e := &Election{
		ID: "e1", Name: "Spring Vote", Status: StatusRunning, EndsAt: &endsAt,
		Positions: []Position{{ID: "p1", Title: "President", MaxWinners: 1}},
	}
	require.NoError(t, store.Create(ctx, e))

	stopped, err := svc.Stop(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, stopped.Status)
	require.NotNil(t, stopped.EndedAt)
	assert.Equal(t, now, *stopped.EndedAt)

	_, err = svc.Stop(ctx, "e1")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
}

func TestSetPublished(t *testing.T) {
	svc, store := newTestService(time.Now())
	ctx := context.Background()
	e := &Election{ID: "e1", Name: "Spring Vote", Status: StatusEnded}
	require.NoError(t, store.Create(ctx, e))

	published, err := svc.SetPublished(ctx, "e1", true)
	require.NoError(t, err)
	assert.True(t, published.ResultsPublished)

	unpublished, err := svc.SetPublished(ctx, "e1", false)
	require.NoError(t, err)
	assert.False(t, unpublished.ResultsPublished)
}

func TestSetPublishedRequiresEnded(t *testing.T) {
	for _, status := range []Status{StatusDraft, StatusScheduled, StatusRunning} {
		t.Run(string(status), func(t *testing.T) {
			svc, store := newTestService(time.Now())
			ctx := context.Background()
			e := &Election{ID: "e1", Name: "Spring Vote", Status: status}
			require.NoError(t, store.Create(ctx, e))

			_, err := svc.SetPublished(ctx, "e1", true)
			require.Error(t, err)
			assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
		})
	}
}

func TestEndExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestService(now)
	ctx := context.Background()

	expired := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	require.NoError(t, store.Create(ctx, &Election{
		ID: "e1", Name: "Expired", Status: StatusRunning, AutoCloseEnabled: true, EndsAt: &expired}))
	require.NoError(t, store.Create(ctx, &Election{
		ID: "e2", Name: "Still open", Status: StatusRunning, AutoCloseEnabled: true, EndsAt: &future}))
	require.NoError(t, store.Create(ctx, &Election{
		ID: "e3", Name: "Draft", Status: StatusDraft, AutoCloseEnabled: true, EndsAt: &expired}))
	require.NoError(t, store.Create(ctx, &Election{
		ID: "e4", Name: "Manual close", Status: StatusRunning, EndsAt: &expired}))

	ended, err := svc.EndExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, ended)

	e1, err := svc.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, e1.Status)
	require.NotNil(t, e1.EndedAt)

	e2, err := svc.Get(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, e2.Status)

	// Elections without auto-close stay open past their deadline until
	// an admin stops them.
	e4, err := svc.Get(ctx, "e4")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, e4.Status)

	// A second sweep finds nothing left to end.
	ended, err = svc.EndExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, ended)
}

func TestElectionNotFound(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	_, err = svc.Start(ctx, "missing")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	_, err = svc.Stop(ctx, "missing")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}
