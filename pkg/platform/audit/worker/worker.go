package worker

import (
	"context"
	"log/slog"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

// Worker drains buffered activity events into the store until the inbox is
// closed. Failed appends are logged and dropped; the activity log is best
// effort once a command has been accepted.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.ActivityEvent
	logger *slog.Logger
	onFail func()
}

func NewWorker(store audit.Store, inbox <-chan audit.ActivityEvent, logger *slog.Logger, onFail func()) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if onFail == nil {
		onFail = func() {}
	}
	return &Worker{store: store, inbox: inbox, logger: logger, onFail: onFail}
}

// Run returns when the inbox is closed and drained, or ctx is cancelled.
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
				w.onFail()
				w.logger.ErrorContext(ctx, "activity event dropped",
					"server_trid", event.ServerTRID,
					"registrar_id", event.RegistrarID,
					"error", err,
				)
			}
		}
	}
}
