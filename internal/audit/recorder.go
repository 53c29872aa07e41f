package audit

import (
	"context"
	"log/slog"

	"github.com/santerec/dep-backend/internal"
	"github.com/santerec/dep-backend/internal/core/events"
)

// Repository persists audit entries. There is intentionally no update or
// delete method.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit, offset int) ([]*Entry, int64, error)
}

// Recorder publishes audit entries over the event bus. Recording is
// decoupled from the operation being audited: Record returns immediately
// and a failed write is logged, never surfaced to the caller.
type Recorder struct {
	bus    *events.EventBus
	logger *slog.Logger
}

func NewRecorder(bus *events.EventBus, repo Repository, logger *slog.Logger) *Recorder {
	bus.Subscribe(events.EventTypeAuditEntry, func(ctx context.Context, event events.Event) error {
		auditEvent, ok := event.(*events.AuditEntryEvent)
		if !ok {
			logger.Error("audit: unexpected event payload", "event_id", event.EventID())
			return nil
		}

		entry := &Entry{
			ActorID:   auditEvent.ActorID,
			Action:    auditEvent.Action,
			Detail:    auditEvent.Detail,
			IPAddress: auditEvent.IPAddress,
		}
		if err := repo.Create(ctx, entry); err != nil {
			logger.Error("audit: failed to persist entry", "error", err, "action", auditEvent.Action)
			return err
		}
		return nil
	})

	return &Recorder{bus: bus, logger: logger}
}

// Record emits one audit entry. The client origin is taken from the
// request context when present.
func (r *Recorder) Record(ctx context.Context, actorID *int64, action, detail string) {
	event := events.NewAuditEntryEvent(actorID, action, detail, internal.OriginFromContext(ctx))

	// The persist handler runs after this request may have completed, so
	// it must not inherit the request's cancellation.
	if err := r.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Error("audit: failed to publish entry", "error", err, "action", action)
	}
}
