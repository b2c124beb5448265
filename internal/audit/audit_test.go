package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "memberflow/pkg/domain"
	"memberflow/pkg/requestcontext"
)

func TestPublisherFillsContextFields(t *testing.T) {
	store := NewInMemory()
	pub := NewPublisher(store)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	memberID := id.MemberID(uuid.New())
	require.NoError(t, pub.Emit(ctx, Event{
		MemberID: memberID,
		Action:   "approve",
		Stage:    "committee",
		Outcome:  OutcomeApplied,
	}))

	events, err := pub.List(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
}

func TestWorkerDrainsInbox(t *testing.T) {
	store := NewInMemory()
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	memberID := id.MemberID(uuid.New())
	inbox <- Event{MemberID: memberID, Action: "submit", Outcome: OutcomeApplied, Timestamp: time.Now()}
	inbox <- Event{MemberID: memberID, Action: "approve", Outcome: OutcomeRejected, Reason: "stale status", Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		events, err := store.ListByMember(context.Background(), memberID)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerStopsOnClosedInbox(t *testing.T) {
	inbox := make(chan Event)
	worker := NewWorker(NewInMemory(), inbox, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	close(inbox)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on closed inbox")
	}
}
