package audit

import (
	"context"
	"log/slog"

	"checkpoint/pkg/requestcontext"
)

// Recorder accepts events from domain logic and hands them to the background
// worker over a bounded channel. Recording is best-effort: a full inbox drops
// the event rather than stalling a verification in flight.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{inbox: make(chan Event, buffer), logger: logger}
}

// Record enriches the event from the request context and enqueues it.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Agent == "" {
		event.Agent = requestcontext.Agent(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"subject_id", event.SubjectID,
		)
	}
}

// Inbox is the worker side of the channel.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}
