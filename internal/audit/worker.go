package audit

import (
	"context"
	"log/slog"
)

// Sink receives every persisted event, typically for fleet-level aggregation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// eventStore mirrors store.EventStore; declared locally because the store
// package imports this one for the Event type.
type eventStore interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]Event, error)
}

// Worker drains the recorder inbox into the store and, when configured, a
// downstream sink. Sink failures are logged and do not stop the worker; the
// store is the source of truth.
type Worker struct {
	store  eventStore
	inbox  <-chan Event
	sink   Sink
	logger *slog.Logger
}

func NewWorker(events eventStore, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: events, inbox: inbox, logger: logger}
}

// WithSink attaches a downstream sink.
func (w *Worker) WithSink(sink Sink) *Worker {
	w.sink = sink
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event", "error", err)
				continue
			}
			if w.sink == nil {
				continue
			}
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "publish audit event", "error", err)
			}
		}
	}
}
