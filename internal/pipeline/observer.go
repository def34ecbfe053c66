package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sematube/internal/ledger"
	"sematube/internal/logging"
	"sematube/internal/services"
)

// Event describes one state transition of a run.
type Event struct {
	RequestID string
	Key       CacheKey
	Input     string
	State     State
	Stage     Stage
	// Skipped is set when the stage was passed through without work.
	Skipped bool
	Err     error
	At      time.Time
}

// Observer receives transitions synchronously. Observers must not block.
type Observer func(Event)

// LedgerObserver records every transition in l.
func LedgerObserver(l *ledger.Ledger, logger *slog.Logger) Observer {
	logger = logging.NewComponentLogger(logger, "pipeline.ledger")
	return func(ev Event) {
		tr := ledger.Transition{
			RequestID: ev.RequestID,
			CacheKey:  ev.Key.Hash(),
			Task:      string(ev.Key.Task),
			Input:     ev.Input,
			State:     string(ev.State),
			Stage:     string(ev.Stage),
			At:        ev.At,
		}
		if ev.Err != nil {
			tr.Error = ev.Err.Error()
			tr.ErrorKind = services.Kind(ev.Err)
		}
		if err := l.Record(context.Background(), tr); err != nil {
			logging.WarnWithContext(logger, "ledger record failed", "ledger_record_failed",
				logging.String("request_id", ev.RequestID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run history may be incomplete"),
			)
		}
	}
}
