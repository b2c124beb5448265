package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them, decoupling
// workflow latency from audit writes. A failed append is logged and dropped
// rather than retried; the aggregate's own status history remains the
// authoritative record.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed",
					"member_id", event.MemberID.String(),
					"action", event.Action,
					"error", err)
			}
		}
	}
}
