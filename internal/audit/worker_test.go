package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/audit"
	"checkpoint/internal/audit/store"
	"checkpoint/pkg/requestcontext"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type captureSink struct {
	events []audit.Event
	err    error
}

func (s *captureSink) Publish(_ context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestRecorderEnrichesFromContext(t *testing.T) {
	rec := audit.NewRecorder(discard(), 4)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithAgent(ctx, "kiosk-1")
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	rec.Record(ctx, audit.Event{SubjectID: "subj-1", Action: audit.ActionScanVerified, Outcome: audit.OutcomeAccepted})

	got := <-rec.Inbox()
	assert.Equal(t, at, got.Timestamp)
	assert.Equal(t, "kiosk-1", got.Agent)
	assert.Equal(t, "req-42", got.RequestID)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	rec := audit.NewRecorder(discard(), 1)
	rec.Record(context.Background(), audit.Event{SubjectID: "subj-1"})
	rec.Record(context.Background(), audit.Event{SubjectID: "subj-2"}) // dropped, must not block

	got := <-rec.Inbox()
	assert.Equal(t, "subj-1", got.SubjectID)
	select {
	case extra := <-rec.Inbox():
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestWorkerPersistsAndFansOut(t *testing.T) {
	rec := audit.NewRecorder(discard(), 4)
	events := store.NewInMemoryEventStore()
	sink := &captureSink{}
	worker := audit.NewWorker(events, rec.Inbox(), discard()).WithSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	rec.Record(context.Background(), audit.Event{SubjectID: "subj-1", Action: audit.ActionTokenIssued, Outcome: audit.OutcomeAccepted})
	rec.Record(context.Background(), audit.Event{SubjectID: "subj-1", Action: audit.ActionScanVerified, Outcome: audit.OutcomeRejected, Reason: "token expired"})

	require.Eventually(t, func() bool {
		stored, err := events.ListBySubject(context.Background(), "subj-1", 0)
		return err == nil && len(stored) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	stored, err := events.ListBySubject(context.Background(), "subj-1", 0)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionTokenIssued, stored[0].Action)
	assert.Equal(t, "token expired", stored[1].Reason)
	assert.Len(t, sink.events, 2)
}

func TestWorkerSurvivesSinkFailure(t *testing.T) {
	rec := audit.NewRecorder(discard(), 4)
	events := store.NewInMemoryEventStore()
	worker := audit.NewWorker(events, rec.Inbox(), discard()).
		WithSink(&captureSink{err: errors.New("broker down")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	rec.Record(context.Background(), audit.Event{SubjectID: "subj-1", Action: audit.ActionScanVerified})
	rec.Record(context.Background(), audit.Event{SubjectID: "subj-1", Action: audit.ActionScanVerified})

	require.Eventually(t, func() bool {
		stored, err := events.ListBySubject(context.Background(), "subj-1", 0)
		return err == nil && len(stored) == 2
	}, time.Second, 5*time.Millisecond)
}
