package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Recorder appends audit events to the outbox. Callers invoke it inside
// their mutation transaction so the event commits or rolls back with the
// change it describes.
type Recorder struct {
	store  OutboxStore
	logger *slog.Logger
}

func NewRecorder(store OutboxStore, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, action, entity string, entityID int64) error {
	event := Event{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		ActorID:  requestcontext.UserID(ctx),
		At:       requestcontext.Now(ctx),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit event")
	}
	entry := &OutboxEntry{
		ID:        uuid.NewString(),
		Payload:   payload,
		CreatedAt: event.At,
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit event")
	}
	return nil
}
