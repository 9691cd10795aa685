package audit

import (
	"context"
	"log/slog"
)

// Publisher streams persisted events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Worker consumes audit events from a channel and persists them, fanning
// out to the optional publisher after the durable write. A failed write is
// logged, not fatal: the audit trail must never take the election down.
type Worker struct {
	store     Store
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(store Store, publisher Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action, "error", err)
		return
	}
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish audit event",
			"action", event.Action, "error", err)
	}
}
