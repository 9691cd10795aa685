package ballot

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/platform/metrics"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
)

type fixture struct {
	svc       *Service
	votes     *MemoryStore
	elections *election.MemoryStore
	users     *user.MemoryStore
	profiles  *candidate.MemoryStore
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		votes:     NewMemoryStore(),
		elections: election.NewMemoryStore(),
		users:     user.NewMemoryStore(),
		profiles:  candidate.NewMemoryStore(),
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.votes, f.elections, f.users, f.profiles,
		slog.New(slog.DiscardHandler), metrics.NewForTest()).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) seedElection(t *testing.T, status election.Status, positions ...election.Position) *election.Election {
	t.Helper()
	endsAt := f.now.Add(time.Hour)
	e := &election.Election{
		ID:        "elec-1",
		Name:      "Student Council 2026",
		Status:    status,
		EndsAt:    &endsAt,
		Positions: positions,
	}
	require.NoError(t, f.elections.Create(context.Background(), e))
	return e
}

func (f *fixture) seedVoter(t *testing.T, id, enrollment string) *user.User {
	t.Helper()
	u := &user.User{
		ID:               id,
		FullName:         "Voter " + id,
		Email:            id + "@campus.test",
		Mobile:           "+9100000" + id,
		Role:             user.RoleVoter,
		ApprovalStatus:   user.ApprovalApproved,
		EnrollmentID:     enrollment,
		IsEmailVerified:  true,
		IsMobileVerified: true,
		IsActive:         true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedCandidate(t *testing.T, id, electionID, positionID string) *user.User {
	t.Helper()
	u := &user.User{
		ID:             id,
		FullName:       "Candidate " + id,
		Email:          id + "@campus.test",
		Mobile:         "+9200000" + id,
		Role:           user.RoleCandidate,
		ApprovalStatus: user.ApprovalApproved,
		IsActive:       true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	require.NoError(t, f.profiles.Create(context.Background(), &candidate.Profile{
		ID:         "prof-" + id,
		UserID:     id,
		ElectionID: electionID,
		PositionID: positionID,
	}))
	return u
}

func pos(id string, order int) election.Position {
	return election.Position{ID: id, Title: "Position " + id, Order: order, MaxWinners: 1}
}

func TestAdmitHappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1), pos("p2", 2))
	voter := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")
	f.seedCandidate(t, "c2", "elec-1", "p2")

	v, err := f.svc.Admit(context.Background(), "elec-1", voter, []Selection{
		{PositionID: "p1", CandidateUserID: "c1"},
		{PositionID: "p2", CandidateUserID: "c2"},
	}, Meta{IP: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "EN-001", v.EnrollmentID)
	assert.Equal(t, f.now, v.CreatedAt)

	st, err := f.svc.Status(context.Background(), "elec-1", voter)
	require.NoError(t, err)
	assert.True(t, st.HasVoted)
	require.NotNil(t, st.VotedAt)
	assert.Equal(t, f.now, *st.VotedAt)
}

func TestAdmitRejectsSecondBallot(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")
	f.seedCandidate(t, "c2", "elec-1", "p1")

	sel := []Selection{{PositionID: "p1", CandidateUserID: "c1"}}
	_, err := f.svc.Admit(context.Background(), "elec-1", voter, sel, Meta{})
	require.NoError(t, err)

	// Same voter, different choice: the first ballot stands.
	_, err = f.svc.Admit(context.Background(), "elec-1", voter,
		[]Selection{{PositionID: "p1", CandidateUserID: "c2"}}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))

	votes, err := f.votes.ListByElection(context.Background(), "elec-1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "c1", votes[0].Selections[0].CandidateUserID)
}

func TestAdmitRejectsSharedEnrollmentID(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	first := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")

	sel := []Selection{{PositionID: "p1", CandidateUserID: "c1"}}
	_, err := f.svc.Admit(context.Background(), "elec-1", first, sel, Meta{})
	require.NoError(t, err)

	// A different account carrying the same enrollment id hits the backstop
	// constraint even though the user id differs.
	double := &user.User{
		ID:               "v2",
		Role:             user.RoleVoter,
		ApprovalStatus:   user.ApprovalApproved,
		EnrollmentID:     "EN-001",
		IsEmailVerified:  true,
		IsMobileVerified: true,
		IsActive:         true,
	}
	_, err = f.svc.Admit(context.Background(), "elec-1", double, sel, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestAdmitElectionNotRunning(t *testing.T) {
	for _, status := range []election.Status{election.StatusDraft, election.StatusScheduled, election.StatusEnded} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.seedElection(t, status, pos("p1", 1))
			voter := f.seedVoter(t, "v1", "EN-001")
			f.seedCandidate(t, "c1", "elec-1", "p1")

			_, err := f.svc.Admit(context.Background(), "elec-1", voter,
				[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
			require.Error(t, err)
			assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
		})
	}
}

func TestAdmitDefensivelyEndsExpiredElection(t *testing.T) {
	f := newFixture(t)
	e := f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")

	// Move the clock past the deadline; the sweep hasn't run yet.
	f.now = e.EndsAt.Add(time.Minute)

	_, err := f.svc.Admit(context.Background(), "elec-1", voter,
		[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))

	got, err := f.elections.FindByID(context.Background(), "elec-1")
	require.NoError(t, err)
	assert.Equal(t, election.StatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, f.now, *got.EndedAt)
}

func TestAdmitElectionNotFound(t *testing.T) {
	f := newFixture(t)
	voter := f.seedVoter(t, "v1", "EN-001")

	_, err := f.svc.Admit(context.Background(), "missing", voter,
		[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestAdmitIneligibleVoter(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(u *user.User)
	}{
		{"pending approval", func(u *user.User) { u.ApprovalStatus = user.ApprovalPending }},
		{"rejected", func(u *user.User) { u.ApprovalStatus = user.ApprovalRejected }},
		{"unverified email", func(u *user.User) { u.IsEmailVerified = false }},
		{"unverified mobile", func(u *user.User) { u.IsMobileVerified = false }},
		{"deactivated", func(u *user.User) { u.IsActive = false }},
		{"wrong role", func(u *user.User) { u.Role = user.RoleCandidate }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedElection(t, election.StatusRunning, pos("p1", 1))
			voter := f.seedVoter(t, "v1", "EN-001")
			f.seedCandidate(t, "c1", "elec-1", "p1")
			tc.mutate(voter)

			_, err := f.svc.Admit(context.Background(), "elec-1", voter,
				[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
		})
	}
}

func TestAdmitMissingEnrollmentID(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")
	voter.EnrollmentID = ""

	_, err := f.svc.Admit(context.Background(), "elec-1", voter,
		[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestAdmitCompleteness(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.seedElection(t, election.StatusRunning, pos("p1", 1), pos("p2", 2))
		f.seedVoter(t, "v1", "EN-001")
		f.seedCandidate(t, "c1", "elec-1", "p1")
		f.seedCandidate(t, "c2", "elec-1", "p2")
		return f
	}

	t.Run("missing position", func(t *testing.T) {
		f := setup(t)
		voter, _ := f.users.FindByID(context.Background(), "v1")
		_, err := f.svc.Admit(context.Background(), "elec-1", voter,
			[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
		assert.Equal(t, []string{"p2"}, dErrors.DetailsOf(err)["missingPositionIds"])
	})

	t.Run("unknown position", func(t *testing.T) {
		f := setup(t)
		voter, _ := f.users.FindByID(context.Background(), "v1")
		_, err := f.svc.Admit(context.Background(), "elec-1", voter, []Selection{
			{PositionID: "p1", CandidateUserID: "c1"},
			{PositionID: "p2", CandidateUserID: "c2"},
			{PositionID: "ghost", CandidateUserID: "c1"},
		}, Meta{})
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
		assert.Equal(t, []string{"ghost"}, dErrors.DetailsOf(err)["extraPositionIds"])
	})

	t.Run("duplicate position", func(t *testing.T) {
		f := setup(t)
		voter, _ := f.users.FindByID(context.Background(), "v1")
		_, err := f.svc.Admit(context.Background(), "elec-1", voter, []Selection{
			{PositionID: "p1", CandidateUserID: "c1"},
			{PositionID: "p1", CandidateUserID: "c1"},
			{PositionID: "p2", CandidateUserID: "c2"},
		}, Meta{})
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
		assert.Equal(t, []string{"p1"}, dErrors.DetailsOf(err)["duplicatePositionIds"])
	})

	t.Run("empty ballot", func(t *testing.T) {
		f := setup(t)
		voter, _ := f.users.FindByID(context.Background(), "v1")
		_, err := f.svc.Admit(context.Background(), "elec-1", voter, nil, Meta{})
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
		assert.ElementsMatch(t, []string{"p1", "p2"},
			dErrors.DetailsOf(err)["missingPositionIds"])
	})
}

func TestAdmitRejectsUnapprovedCandidate(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")
	cand := f.seedCandidate(t, "c1", "elec-1", "p1")
	cand.ApprovalStatus = user.ApprovalPending
	require.NoError(t, f.users.Update(context.Background(), cand))

	_, err := f.svc.Admit(context.Background(), "elec-1", voter,
		[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	assert.Equal(t, "c1", dErrors.DetailsOf(err)["candidateUserId"])
}

func TestAdmitRejectsWrongPositionBinding(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1), pos("p2", 2))
	voter := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")
	f.seedCandidate(t, "c2", "elec-1", "p2")

	// c1 contests p1; voting them into p2 is a binding violation.
	_, err := f.svc.Admit(context.Background(), "elec-1", voter, []Selection{
		{PositionID: "p1", CandidateUserID: "c2"},
		{PositionID: "p2", CandidateUserID: "c1"},
	}, Meta{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	details := dErrors.DetailsOf(err)
	assert.Equal(t, "c2", details["candidateUserId"])
	assert.Equal(t, "p1", details["positionId"])
}

func TestAdmitConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")
	f.seedCandidate(t, "c1", "elec-1", "p1")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Admit(context.Background(), "elec-1", voter,
				[]Selection{{PositionID: "p1", CandidateUserID: "c1"}}, Meta{})
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case dErrors.CodeOf(err) == dErrors.CodeConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicted)

	count, err := f.votes.CountByElection(context.Background(), "elec-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusBeforeVoting(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusRunning, pos("p1", 1))
	voter := f.seedVoter(t, "v1", "EN-001")

	st, err := f.svc.Status(context.Background(), "elec-1", voter)
	require.NoError(t, err)
	assert.False(t, st.HasVoted)
	assert.Nil(t, st.VotedAt)
}
