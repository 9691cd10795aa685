package ballot

import "time"

// Selection is one (position, candidate) choice within a ballot.
type Selection struct {
	PositionID      string `json:"positionId"`
	CandidateUserID string `json:"candidateUserId"`
}

// Vote is the durable record of one admitted ballot. It is write-once:
// created at admission and never mutated or deleted. Exactly-once admission
// is enforced by two storage-level uniqueness constraints: one on
// (electionID, voterUserID) and a backstop on (electionID, enrollmentID).
type Vote struct {
	ID           string      `json:"id"`
	ElectionID   string      `json:"electionId"`
	VoterUserID  string      `json:"voterUserId"`
	EnrollmentID string      `json:"enrollmentId"`
	Selections   []Selection `json:"selections"`
	IP           string      `json:"ip,omitempty"`
	UserAgent    string      `json:"userAgent,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Status tells a voter whether their ballot is already in, without
// exposing its contents.
type Status struct {
	HasVoted bool       `json:"hasVoted"`
	VotedAt  *time.Time `json:"votedAt,omitempty"`
}
