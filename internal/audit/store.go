package audit

import "context"

// Store persists audit events. Append must tolerate being called from the
// background worker after request contexts are gone.
type Store interface {
	Append(ctx context.Context, e Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
