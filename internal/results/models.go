package results

import (
	"time"

	"campusvote/internal/election"
)

// CandidateTally is one ranked row within a position's result table.
type CandidateTally struct {
	CandidateUserID string  `json:"candidateUserId"`
	FullName        string  `json:"fullName"`
	Department      string  `json:"department,omitempty"`
	PhotoURL        string  `json:"photoUrl,omitempty"`
	SymbolURL       string  `json:"electionSymbolUrl,omitempty"`
	Votes           int     `json:"votes"`
	Percent         float64 `json:"percent"`
}

// PositionResult is the tallied outcome for one contested position.
// Candidates are ranked by votes descending; ties rank by candidate user
// id ascending so the ordering is deterministic across runs.
type PositionResult struct {
	PositionID string           `json:"positionId"`
	Title      string           `json:"title"`
	Order      int              `json:"order"`
	MaxWinners int              `json:"maxWinners"`
	TotalVotes int              `json:"totalVotes"`
	Candidates []CandidateTally `json:"candidates"`
	Winners    []CandidateTally `json:"winners"`
}

// Summary is the participation roll-up for the whole election.
type Summary struct {
	EligibleVoters int     `json:"eligibleVoters"`
	BallotsCast    int     `json:"ballotsCast"`
	TurnoutPercent float64 `json:"turnoutPercent"`
}

// Report is the full tabulation output for one ended election.
type Report struct {
	ElectionID       string           `json:"electionId"`
	ElectionName     string           `json:"electionName"`
	Status           election.Status  `json:"status"`
	ResultsPublished bool             `json:"resultsPublished"`
	EndedAt          *time.Time       `json:"endedAt,omitempty"`
	Summary          Summary          `json:"summary"`
	Positions        []PositionResult `json:"positions"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}
