package election

import (
	"context"
	"time"
)

// Store abstracts election persistence. Implementations return
// sentinel.ErrNotFound for missing elections and sentinel.ErrConflict when
// the unique name constraint rejects a write.
type Store interface {
	Create(ctx context.Context, e *Election) error
	Update(ctx context.Context, e *Election) error
	FindByID(ctx context.Context, id string) (*Election, error)
	List(ctx context.Context) ([]*Election, error)
	// ListExpiredRunning returns RUNNING elections with auto-close enabled
	// whose deadline is at or before now. Used by the sweeper.
	ListExpiredRunning(ctx context.Context, now time.Time) ([]*Election, error)
}
