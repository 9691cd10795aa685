package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder is the write side handed to request handlers. Record never
// blocks a request: events go into a buffered channel and the worker
// drains it. When the buffer is full the event is dropped and logged,
// trading completeness for request latency.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
		now:    time.Now,
	}
}

// Record stamps and enqueues one event.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}
	select {
	case r.inbox <- e:
	default:
		r.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", e.Action, "entity_id", e.EntityID)
	}
}

// Inbox exposes the channel the worker consumes.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}
