package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/notification"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mock_service_test.go -package=handler

// Service defines the notification operations the handler needs.
type Service interface {
	List(ctx context.Context, userID id.UserID) ([]*notification.Notification, error)
	MarkOpened(ctx context.Context, notificationID id.NotificationID) (*notification.Notification, error)
}

// Handler wires notification endpoints to the notification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/notification", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/{id}/open", h.HandleMarkOpened)
	})
}

// HandleList returns the authenticated user's notifications.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	notifications, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "notification listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifications)
}

func (h *Handler) HandleMarkOpened(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid notification id"))
		return
	}
	updated, err := h.service.MarkOpened(r.Context(), id.NotificationID(n))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}
