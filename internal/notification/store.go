package notification

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists notifications. Implementations return ErrNotFound for
// missing notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*Notification, error)
	// ListByUser returns a user's notifications, newest first.
	ListByUser(ctx context.Context, userID id.UserID) ([]*Notification, error)
	Update(ctx context.Context, n *Notification) error
}
