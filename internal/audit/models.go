package audit

import "time"

// Actions recorded in the trail. Reads are not audited, only mutations of
// election state and accounts.
const (
	ActionElectionCreated  = "election.created"
	ActionElectionUpdated  = "election.updated"
	ActionElectionStarted  = "election.started"
	ActionElectionStopped  = "election.stopped"
	ActionElectionPublish  = "election.results_published"
	ActionPositionAdded    = "election.position_added"
	ActionPositionUpdated  = "election.position_updated"
	ActionPositionRemoved  = "election.position_removed"
	ActionApprovalDecision = "user.approval_decision"
	ActionUserActivation   = "user.activation_changed"
	ActionAdminCreated     = "user.admin_created"
	ActionVoteCast         = "vote.cast"
)

// Event is one immutable audit trail entry.
type Event struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actorId,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
