package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWorkerRoundTrip(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	store := NewMemoryStore()
	recorder := NewRecorder(16, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(store, nil, recorder.Inbox(), logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	recorder.Record(ctx, Event{
		ActorID:    "admin-1",
		Action:     ActionElectionStarted,
		EntityType: "election",
		EntityID:   "elec-1",
	})

	require.Eventually(t, func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, ActionElectionStarted, events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].OccurredAt.IsZero())

	cancel()
	<-done
}

func TestRecorderDropsWhenFull(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	recorder := NewRecorder(1, logger)

	// No worker draining: second event must not block.
	recorder.Record(context.Background(), Event{Action: ActionVoteCast})
	finished := make(chan struct{})
	go func() {
		recorder.Record(context.Background(), Event{Action: ActionVoteCast})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestListRecentNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), Event{
			ID:         string(rune('a' + i)),
			Action:     ActionElectionUpdated,
			EntityType: "election",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e", events[0].ID)
	assert.Equal(t, "d", events[1].ID)
	assert.Equal(t, "c", events[2].ID)
}
