package election

import "time"

// Status is the election lifecycle state. Transitions are monotonic:
// DRAFT -> SCHEDULED -> RUNNING -> ENDED, never backwards.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusRunning   Status = "RUNNING"
	StatusEnded     Status = "ENDED"
)

// Position is a contested seat within an election. Positions are value
// objects owned by their election and become immutable once the election
// leaves DRAFT/SCHEDULED.
type Position struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Order      int    `json:"order"`
	MaxWinners int    `json:"maxWinners"`
}

// Election is the aggregate the whole system revolves around.
type Election struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Status           Status     `json:"status"`
	StartsAt         *time.Time `json:"startsAt,omitempty"`
	EndsAt           *time.Time `json:"endsAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	AutoCloseEnabled bool       `json:"autoCloseEnabled"`
	ResultsPublished bool       `json:"resultsPublished"`
	Positions        []Position `json:"positions"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ConfigMutable reports whether positions may still be added or edited.
func (e *Election) ConfigMutable() bool {
	return e.Status == StatusDraft || e.Status == StatusScheduled
}

// Position returns the position with the given id, nil when absent.
func (e *Election) Position(positionID string) *Position {
	for i := range e.Positions {
		if e.Positions[i].ID == positionID {
			return &e.Positions[i]
		}
	}
	return nil
}

// PositionIDs returns the configured position id set.
func (e *Election) PositionIDs() []string {
	ids := make([]string, len(e.Positions))
	for i, p := range e.Positions {
		ids[i] = p.ID
	}
	return ids
}

// Expired reports whether the voting deadline has elapsed.
func (e *Election) Expired(now time.Time) bool {
	return e.EndsAt != nil && !e.EndsAt.After(now)
}

// EndIfExpired applies the idempotent end transition used by both the
// periodic sweep and the in-request defensive check during ballot
// admission. Applying it twice is a no-op: the second call finds the
// status already ENDED.
func (e *Election) EndIfExpired(now time.Time) bool {
	if e.Status != StatusRunning || !e.Expired(now) {
		return false
	}
	e.Status = StatusEnded
	ended := now
	e.EndedAt = &ended
	return true
}
