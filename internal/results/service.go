package results

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campusvote/internal/ballot"
	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// ElectionLookup is the read slice of election persistence tabulation uses.
type ElectionLookup interface {
	FindByID(ctx context.Context, id string) (*election.Election, error)
}

// VoteReader reads admitted ballots for an election.
type VoteReader interface {
	ListByElection(ctx context.Context, electionID string) ([]*ballot.Vote, error)
}

// UserDirectory resolves candidate users and the live eligible-voter count.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]*user.User, error)
	CountEligibleVoters(ctx context.Context) (int, error)
}

// ProfileReader lists candidate profiles registered in an election.
type ProfileReader interface {
	ListByElection(ctx context.Context, electionID string) ([]*candidate.Profile, error)
}

// Service tabulates ended elections. Tabulation is a pure read: it derives
// the report from stored ballots on every call rather than caching a
// snapshot, so a late de-approval is reflected on the next request.
type Service struct {
	elections ElectionLookup
	votes     VoteReader
	users     UserDirectory
	profiles  ProfileReader
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(elections ElectionLookup, votes VoteReader, users UserDirectory, profiles ProfileReader, logger *slog.Logger) *Service {
	return &Service{
		elections: elections,
		votes:     votes,
		users:     users,
		profiles:  profiles,
		logger:    logger,
		tracer:    otel.Tracer("campusvote/results"),
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ForAdmin tabulates for an admin viewer. Admins may see results of any
// ended election, published or not.
func (s *Service) ForAdmin(ctx context.Context, electionID string) (*Report, error) {
	return s.tabulate(ctx, electionID, nil)
}

// ForCandidate tabulates for a candidate viewer. Candidates see results
// only after publication, and only for an election they contested.
func (s *Service) ForCandidate(ctx context.Context, electionID, candidateUserID string) (*Report, error) {
	return s.tabulate(ctx, electionID, &candidateUserID)
}

func (s *Service) tabulate(ctx context.Context, electionID string, candidateUserID *string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "results.Tabulate", trace.WithAttributes(
		attribute.String("election.id", electionID),
	))
	defer span.End()

	e, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	if e.Status != election.StatusEnded {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "results are available only after the election has ended")
	}

	profiles, err := s.profiles.ListByElection(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate profiles")
	}

	if candidateUserID != nil {
		if !e.ResultsPublished {
			return nil, dErrors.New(dErrors.CodeForbidden, "results have not been published yet")
		}
		if !hasProfile(profiles, *candidateUserID) {
			return nil, dErrors.New(dErrors.CodeForbidden, "you did not contest this election")
		}
	}

	votes, err := s.votes.ListByElection(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ballots")
	}
	eligible, err := s.users.CountEligibleVoters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count eligible voters")
	}

	candidates, err := s.loadApprovedCandidates(ctx, profiles)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ElectionID:       e.ID,
		ElectionName:     e.Name,
		Status:           e.Status,
		ResultsPublished: e.ResultsPublished,
		EndedAt:          e.EndedAt,
		Summary: Summary{
			EligibleVoters: eligible,
			BallotsCast:    len(votes),
			TurnoutPercent: percent(len(votes), eligible),
		},
		Positions:   s.tallyPositions(e, votes, profiles, candidates),
		GeneratedAt: s.now(),
	}

	span.SetAttributes(
		attribute.Int("results.ballots", len(votes)),
		attribute.Int("results.positions", len(report.Positions)),
	)
	return report, nil
}

// loadApprovedCandidates resolves profile owners and keeps only users who
// are still approved, active candidates. A candidate de-approved after the
// election drops out of the tables entirely.
func (s *Service) loadApprovedCandidates(ctx context.Context, profiles []*candidate.Profile) (map[string]*user.User, error) {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidates")
	}
	approved := make(map[string]*user.User, len(users))
	for _, u := range users {
		if u.ApprovedCandidate() {
			approved[u.ID] = u
		}
	}
	return approved, nil
}

func (s *Service) tallyPositions(e *election.Election, votes []*ballot.Vote, profiles []*candidate.Profile, candidates map[string]*user.User) []PositionResult {
	// counts[positionID][candidateUserID]
	counts := make(map[string]map[string]int)
	for _, v := range votes {
		for _, sel := range v.Selections {
			if counts[sel.PositionID] == nil {
				counts[sel.PositionID] = make(map[string]int)
			}
			counts[sel.PositionID][sel.CandidateUserID]++
		}
	}

	profileByBinding := make(map[string]*candidate.Profile, len(profiles))
	for _, p := range profiles {
		profileByBinding[p.BindingKey()] = p
	}

	out := make([]PositionResult, 0, len(e.Positions))
	for _, p := range e.Positions {
		result := PositionResult{
			PositionID: p.ID,
			Title:      p.Title,
			Order:      p.Order,
			MaxWinners: p.MaxWinners,
		}

		// Every still-approved contestant appears, zero votes included.
		for _, prof := range profiles {
			if prof.PositionID != p.ID {
				continue
			}
			u, ok := candidates[prof.UserID]
			if !ok {
				continue
			}
			result.Candidates = append(result.Candidates, CandidateTally{
				CandidateUserID: u.ID,
				FullName:        u.FullName,
				Department:      u.Department,
				PhotoURL:        prof.PhotoURL,
				SymbolURL:       prof.SymbolURL,
				Votes:           counts[p.ID][u.ID],
			})
		}

		for i := range result.Candidates {
			result.TotalVotes += result.Candidates[i].Votes
		}
		for i := range result.Candidates {
			result.Candidates[i].Percent = percent(result.Candidates[i].Votes, result.TotalVotes)
		}

		sort.Slice(result.Candidates, func(i, j int) bool {
			a, b := result.Candidates[i], result.Candidates[j]
			if a.Votes != b.Votes {
				return a.Votes > b.Votes
			}
			return a.CandidateUserID < b.CandidateUserID
		})

		n := p.MaxWinners
		if n > len(result.Candidates) {
			n = len(result.Candidates)
		}
		if n > 0 {
			result.Winners = append(result.Winners, result.Candidates[:n]...)
		}

		out = append(out, result)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func hasProfile(profiles []*candidate.Profile, userID string) bool {
	for _, p := range profiles {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// percent returns part/whole as a percentage rounded to two decimals,
// zero when the denominator is zero.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
