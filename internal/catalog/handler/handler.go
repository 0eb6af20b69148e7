package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/catalog"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	Create(ctx context.Context, kind catalog.Kind, in catalog.CreateInput) (*catalog.Entry, error)
	Get(ctx context.Context, kind catalog.Kind, entryID id.CatalogID) (*catalog.Entry, error)
	List(ctx context.Context, kind catalog.Kind, filter catalog.ListFilter) ([]*catalog.Entry, error)
	Update(ctx context.Context, kind catalog.Kind, entryID id.CatalogID, in catalog.UpdateInput) (*catalog.Entry, error)
	Delete(ctx context.Context, kind catalog.Kind, entryID id.CatalogID) error
}

// Handler serves every catalog kind from one parametrized set of routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints on the router. The kind travels in the
// path, e.g. /catalog/division/.
func (h *Handler) Register(r chi.Router) {
	r.Route("/catalog/{kind}", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	in := catalog.CreateInput{Name: req.Name, Description: req.Description}
	if req.ParentID != nil {
		pid := id.CatalogID(*req.ParentID)
		in.ParentID = &pid
	}
	e, err := h.service.Create(r.Context(), kind, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	filter := catalog.ListFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		NameFilter: r.URL.Query().Get("name"),
	}
	entries, err := h.service.List(r.Context(), kind, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	entryID, ok := entryIDFromURL(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), kind, entryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

type updateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Reparent    bool    `json:"reparent,omitempty"`
	Active      *bool   `json:"is_active,omitempty"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	entryID, ok := entryIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[updateRequest](w, r)
	if !ok {
		return
	}
	in := catalog.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Reparent:    req.Reparent,
		Active:      req.Active,
	}
	if req.ParentID != nil {
		pid := id.CatalogID(*req.ParentID)
		in.ParentID = &pid
	}
	e, err := h.service.Update(r.Context(), kind, entryID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	entryID, ok := entryIDFromURL(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), kind, entryID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func entryIDFromURL(w http.ResponseWriter, r *http.Request) (id.CatalogID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid catalog entry id"))
		return 0, false
	}
	return id.CatalogID(n), true
}
