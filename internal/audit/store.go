package audit

import (
	"context"
	"time"
)

// OutboxStore persists pending audit events.
type OutboxStore interface {
	Append(ctx context.Context, entry *OutboxEntry) error
	// ListUnpublished returns up to limit entries in append order.
	ListUnpublished(ctx context.Context, limit int) ([]*OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}
