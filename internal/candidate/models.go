package candidate

import "time"

// ManifestoMaxLength caps manifesto text at registration and edit time.
const ManifestoMaxLength = 4000

// Profile links a candidate user to the one election and position they
// contest. At most one profile exists per (user, election); once the owning
// user is APPROVED the position, photo, and symbol are locked.
type Profile struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ElectionID string    `json:"electionId"`
	PositionID string    `json:"positionId"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
	SymbolURL  string    `json:"electionSymbolUrl,omitempty"`
	Manifesto  string    `json:"manifesto,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BindingKey identifies the (candidate, position) pair ballot admission
// checks selections against.
func (p *Profile) BindingKey() string {
	return p.UserID + "::" + p.PositionID
}
