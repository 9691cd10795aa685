package results

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/ballot"
	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
)

type fixture struct {
	svc       *Service
	elections *election.MemoryStore
	votes     *ballot.MemoryStore
	users     *user.MemoryStore
	profiles  *candidate.MemoryStore
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		elections: election.NewMemoryStore(),
		votes:     ballot.NewMemoryStore(),
		users:     user.NewMemoryStore(),
		profiles:  candidate.NewMemoryStore(),
		now:       time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.elections, f.votes, f.users, f.profiles,
		slog.New(slog.DiscardHandler)).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) seedElection(t *testing.T, status election.Status, published bool, positions ...election.Position) {
	t.Helper()
	ended := f.now.Add(-time.Hour)
	e := &election.Election{
		ID:               "elec-1",
		Name:             "Student Council 2026",
		Status:           status,
		ResultsPublished: published,
		Positions:        positions,
	}
	if status == election.StatusEnded {
		e.EndedAt = &ended
	}
	require.NoError(t, f.elections.Create(context.Background(), e))
}

func (f *fixture) seedCandidate(t *testing.T, id, positionID string) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &user.User{
		ID:             id,
		FullName:       "Candidate " + id,
		Email:          id + "@campus.test",
		Mobile:         "+9200000" + id,
		Role:           user.RoleCandidate,
		ApprovalStatus: user.ApprovalApproved,
		IsActive:       true,
	}))
	require.NoError(t, f.profiles.Create(context.Background(), &candidate.Profile{
		ID:         "prof-" + id,
		UserID:     id,
		ElectionID: "elec-1",
		PositionID: positionID,
	}))
}

func (f *fixture) seedEligibleVoters(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		require.NoError(t, f.users.Create(context.Background(), &user.User{
			ID:               "voter-" + id,
			Email:            "voter-" + id + "@campus.test",
			Mobile:           "+91000000" + id,
			EnrollmentID:     "EN-" + id,
			Role:             user.RoleVoter,
			ApprovalStatus:   user.ApprovalApproved,
			IsEmailVerified:  true,
			IsMobileVerified: true,
			IsActive:         true,
		}))
	}
}

func (f *fixture) castBallot(t *testing.T, voterID string, selections ...ballot.Selection) {
	t.Helper()
	require.NoError(t, f.votes.Create(context.Background(), &ballot.Vote{
		ID:           "vote-" + voterID,
		ElectionID:   "elec-1",
		VoterUserID:  voterID,
		EnrollmentID: "EN-" + voterID,
		Selections:   selections,
		CreatedAt:    f.now.Add(-2 * time.Hour),
	}))
}

func pos(id string, order, maxWinners int) election.Position {
	return election.Position{ID: id, Title: "Position " + id, Order: order, MaxWinners: maxWinners}
}

func TestForAdminTabulation(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p2", 2, 1), pos("p1", 1, 1))
	f.seedCandidate(t, "c1", "p1")
	f.seedCandidate(t, "c2", "p1")
	f.seedCandidate(t, "c3", "p2")
	f.seedEligibleVoters(t, 4)

	f.castBallot(t, "v1",
		ballot.Selection{PositionID: "p1", CandidateUserID: "c1"},
		ballot.Selection{PositionID: "p2", CandidateUserID: "c3"})
	f.castBallot(t, "v2",
		ballot.Selection{PositionID: "p1", CandidateUserID: "c1"},
		ballot.Selection{PositionID: "p2", CandidateUserID: "c3"})
	f.castBallot(t, "v3",
		ballot.Selection{PositionID: "p1", CandidateUserID: "c2"},
		ballot.Selection{PositionID: "p2", CandidateUserID: "c3"})

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)

	assert.Equal(t, 3, r.Summary.BallotsCast)
	assert.Equal(t, 4, r.Summary.EligibleVoters)
	assert.Equal(t, 75.0, r.Summary.TurnoutPercent)

	// Positions come back ordered by configured order, not storage order.
	require.Len(t, r.Positions, 2)
	assert.Equal(t, "p1", r.Positions[0].PositionID)
	assert.Equal(t, "p2", r.Positions[1].PositionID)

	p1 := r.Positions[0]
	assert.Equal(t, 3, p1.TotalVotes)
	require.Len(t, p1.Candidates, 2)
	assert.Equal(t, "c1", p1.Candidates[0].CandidateUserID)
	assert.Equal(t, 2, p1.Candidates[0].Votes)
	assert.Equal(t, 66.67, p1.Candidates[0].Percent)
	assert.Equal(t, "c2", p1.Candidates[1].CandidateUserID)
	assert.Equal(t, 33.33, p1.Candidates[1].Percent)
	require.Len(t, p1.Winners, 1)
	assert.Equal(t, "c1", p1.Winners[0].CandidateUserID)

	p2 := r.Positions[1]
	assert.Equal(t, 3, p2.TotalVotes)
	assert.Equal(t, 100.0, p2.Candidates[0].Percent)
}

func TestTabulateRequiresEndedElection(t *testing.T) {
	for _, status := range []election.Status{election.StatusDraft, election.StatusScheduled, election.StatusRunning} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.seedElection(t, status, false, pos("p1", 1, 1))

			_, err := f.svc.ForAdmin(context.Background(), "elec-1")
			require.Error(t, err)
			assert.Equal(t, dErrors.CodePreconditionFailed, dErrors.CodeOf(err))
		})
	}
}

func TestTabulateElectionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForAdmin(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestTieBreakIsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 1))
	f.seedCandidate(t, "c-zulu", "p1")
	f.seedCandidate(t, "c-alpha", "p1")
	f.seedEligibleVoters(t, 2)

	f.castBallot(t, "v1", ballot.Selection{PositionID: "p1", CandidateUserID: "c-zulu"})
	f.castBallot(t, "v2", ballot.Selection{PositionID: "p1", CandidateUserID: "c-alpha"})

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)
	p1 := r.Positions[0]
	assert.Equal(t, "c-alpha", p1.Candidates[0].CandidateUserID)
	assert.Equal(t, "c-zulu", p1.Candidates[1].CandidateUserID)
	assert.Equal(t, "c-alpha", p1.Winners[0].CandidateUserID)
}

func TestMultiWinnerPosition(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 2))
	f.seedCandidate(t, "c1", "p1")
	f.seedCandidate(t, "c2", "p1")
	f.seedCandidate(t, "c3", "p1")
	f.seedEligibleVoters(t, 3)

	f.castBallot(t, "v1", ballot.Selection{PositionID: "p1", CandidateUserID: "c1"})
	f.castBallot(t, "v2", ballot.Selection{PositionID: "p1", CandidateUserID: "c2"})
	f.castBallot(t, "v3", ballot.Selection{PositionID: "p1", CandidateUserID: "c2"})

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)
	require.Len(t, r.Positions[0].Winners, 2)
	assert.Equal(t, "c2", r.Positions[0].Winners[0].CandidateUserID)
	assert.Equal(t, "c1", r.Positions[0].Winners[1].CandidateUserID)
}

func TestDeApprovedCandidateExcluded(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 1))
	f.seedCandidate(t, "c1", "p1")
	f.seedCandidate(t, "c2", "p1")
	f.seedEligibleVoters(t, 2)

	f.castBallot(t, "v1", ballot.Selection{PositionID: "p1", CandidateUserID: "c1"})
	f.castBallot(t, "v2", ballot.Selection{PositionID: "p1", CandidateUserID: "c2"})

	c1, err := f.users.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	c1.ApprovalStatus = user.ApprovalRejected
	require.NoError(t, f.users.Update(context.Background(), c1))

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)
	p1 := r.Positions[0]
	require.Len(t, p1.Candidates, 1)
	assert.Equal(t, "c2", p1.Candidates[0].CandidateUserID)
	assert.Equal(t, 1, p1.TotalVotes)
	assert.Equal(t, 100.0, p1.Candidates[0].Percent)
}

func TestZeroVotePositionAndTurnout(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 1))
	f.seedCandidate(t, "c1", "p1")

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Summary.EligibleVoters)
	assert.Equal(t, 0.0, r.Summary.TurnoutPercent)
	p1 := r.Positions[0]
	assert.Equal(t, 0, p1.TotalVotes)
	require.Len(t, p1.Candidates, 1)
	assert.Equal(t, 0.0, p1.Candidates[0].Percent)
	require.Len(t, p1.Winners, 1)
}

func TestPercentagesSumWithinPosition(t *testing.T) {
	f := newFixture(t)
	f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 1))
	f.seedCandidate(t, "c1", "p1")
	f.seedCandidate(t, "c2", "p1")
	f.seedCandidate(t, "c3", "p1")
	f.seedEligibleVoters(t, 3)

	f.castBallot(t, "v1", ballot.Selection{PositionID: "p1", CandidateUserID: "c1"})
	f.castBallot(t, "v2", ballot.Selection{PositionID: "p1", CandidateUserID: "c2"})
	f.castBallot(t, "v3", ballot.Selection{PositionID: "p1", CandidateUserID: "c3"})

	r, err := f.svc.ForAdmin(context.Background(), "elec-1")
	require.NoError(t, err)
	var sum float64
	for _, c := range r.Positions[0].Candidates {
		sum += c.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestForCandidateAccess(t *testing.T) {
	t.Run("unpublished is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seedElection(t, election.StatusEnded, false, pos("p1", 1, 1))
		f.seedCandidate(t, "c1", "p1")

		_, err := f.svc.ForCandidate(context.Background(), "elec-1", "c1")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	t.Run("non-contestant is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seedElection(t, election.StatusEnded, true, pos("p1", 1, 1))
		f.seedCandidate(t, "c1", "p1")

		_, err := f.svc.ForCandidate(context.Background(), "elec-1", "outsider")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	t.Run("published contestant sees report", func(t *testing.T) {
		f := newFixture(t)
		f.seedElection(t, election.StatusEnded, true, pos("p1", 1, 1))
		f.seedCandidate(t, "c1", "p1")

		r, err := f.svc.ForCandidate(context.Background(), "elec-1", "c1")
		require.NoError(t, err)
		assert.True(t, r.ResultsPublished)
	})
}
