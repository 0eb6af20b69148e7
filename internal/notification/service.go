package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"custodia/internal/platform/metrics"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service dispatches and manages workflow notifications.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// CommentAdded notifies the evidence owner about a new comment.
func (s *Service) CommentAdded(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string) {
	s.emit(ctx, evidenceID, ownerID, fmt.Sprintf("New comment on %s", typeName))
}

// FindingCreated notifies the evidence owner that a finding was opened.
// The source workflow fires both the created and the updated hook on
// creation, so owners receive two notifications; that behavior is kept.
func (s *Service) FindingCreated(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string) {
	s.emit(ctx, evidenceID, ownerID, fmt.Sprintf("A finding was created on %s", typeName))
	s.emit(ctx, evidenceID, ownerID, fmt.Sprintf("A finding was updated on %s", typeName))
}

// FindingUpdated notifies the evidence owner that a finding changed.
func (s *Service) FindingUpdated(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string) {
	s.emit(ctx, evidenceID, ownerID, fmt.Sprintf("A finding was updated on %s", typeName))
}

func (s *Service) emit(ctx context.Context, evidenceID id.EvidenceID, userID id.UserID, content string) {
	now := requestcontext.Now(ctx)
	n := &Notification{
		EvidenceID: evidenceID,
		UserID:     userID,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "notification write failed",
			"evidence_id", evidenceID, "user_id", userID, "error", err)
		return
	}
	s.metrics.IncrementNotificationsEmitted()
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// MarkOpened flags a notification as read. Only the recipient may open
// their own notifications.
func (s *Service) MarkOpened(ctx context.Context, notificationID id.NotificationID) (*Notification, error) {
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	if requestcontext.UserID(ctx) != n.UserID {
		return nil, dErrors.New(dErrors.CodeForbidden, "notification belongs to another user")
	}
	if !n.Opened {
		n.Opened = true
		n.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Update(ctx, n); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification opened")
		}
	}
	return n, nil
}
