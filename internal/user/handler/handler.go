package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/user"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the directory operations the handler needs.
type Service interface {
	Create(ctx context.Context, name, email string, divisionID id.DivisionID) (*user.User, error)
	Get(ctx context.Context, userID id.UserID) (*user.User, error)
	List(ctx context.Context, activeOnly bool) ([]*user.User, error)
	Deactivate(ctx context.Context, userID id.UserID) (*user.User, error)
}

// Handler wires user directory endpoints to the user service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts user directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/user", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/deactivate", h.HandleDeactivate)
	})
}

type createRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	DivisionID int64  `json:"division_id"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	u, err := h.service.Create(r.Context(), req.Name, req.Email, id.DivisionID(req.DivisionID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromURL(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromURL(w, r)
	if !ok {
		return
	}
	u, err := h.service.Deactivate(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func userIDFromURL(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return 0, false
	}
	return id.UserID(n), true
}
