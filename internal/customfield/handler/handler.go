package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/attribute"
	"custodia/internal/customfield"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the custom-field operations the handler needs.
type Service interface {
	Create(ctx context.Context, in customfield.CreateInput) (*customfield.CustomField, error)
	Get(ctx context.Context, fieldID id.CustomFieldID) (*customfield.CustomField, error)
	List(ctx context.Context, activeOnly bool) ([]*customfield.CustomField, error)
	Update(ctx context.Context, fieldID id.CustomFieldID, in customfield.UpdateInput) (*customfield.CustomField, error)
	Deactivate(ctx context.Context, fieldID id.CustomFieldID) (*customfield.CustomField, error)
	Delete(ctx context.Context, fieldID id.CustomFieldID) error
}

// Handler wires custom-field endpoints to the catalog service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts custom-field endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/custom-field", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Post("/{id}/deactivate", h.HandleDeactivate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

type createRequest struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Datatype    string   `json:"datatype"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`
	CatalogHint string   `json:"catalog_hint,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	datatype, err := attribute.ParseDatatype(req.Datatype)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	field, err := h.service.Create(ctx, customfield.CreateInput{
		AttributeName: req.Name,
		AttributeSlug: req.Slug,
		Datatype:      datatype,
		Choices:       req.Choices,
		Description:   req.Description,
		CatalogHint:   req.CatalogHint,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "custom field creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"slug", req.Slug,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, field)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	fields, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fields)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := fieldIDFromURL(w, r)
	if !ok {
		return
	}
	field, err := h.service.Get(r.Context(), fieldID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, field)
}

type updateRequest struct {
	Description *string `json:"description,omitempty"`
	CatalogHint *string `json:"catalog_hint,omitempty"`
	Active      *bool   `json:"is_active,omitempty"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := fieldIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[updateRequest](w, r)
	if !ok {
		return
	}
	field, err := h.service.Update(r.Context(), fieldID, customfield.UpdateInput{
		Description: req.Description,
		CatalogHint: req.CatalogHint,
		Active:      req.Active,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, field)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := fieldIDFromURL(w, r)
	if !ok {
		return
	}
	field, err := h.service.Deactivate(r.Context(), fieldID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, field)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fieldID, ok := fieldIDFromURL(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, fieldID); err != nil {
		h.logger.ErrorContext(ctx, "custom field deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"custom_field_id", fieldID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fieldIDFromURL(w http.ResponseWriter, r *http.Request) (id.CustomFieldID, bool) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid custom field id"))
		return 0, false
	}
	return id.CustomFieldID(n), true
}
