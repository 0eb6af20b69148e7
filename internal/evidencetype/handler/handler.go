package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/evidencetype"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the evidence-type operations the handler needs.
type Service interface {
	Create(ctx context.Context, in evidencetype.CreateInput) (*evidencetype.EvidenceType, error)
	Get(ctx context.Context, typeID id.EvidenceTypeID) (*evidencetype.EvidenceType, error)
	GetByAlias(ctx context.Context, alias string) (*evidencetype.EvidenceType, error)
	List(ctx context.Context, activeOnly bool) ([]*evidencetype.EvidenceType, error)
	Update(ctx context.Context, typeID id.EvidenceTypeID, in evidencetype.UpdateInput) (*evidencetype.EvidenceType, error)
	Delete(ctx context.Context, typeID id.EvidenceTypeID) error
	Schema(ctx context.Context, typeID id.EvidenceTypeID) ([]evidencetype.SchemaField, error)
	AttachCustomField(ctx context.Context, typeID id.EvidenceTypeID, in evidencetype.AttachFieldInput) (*evidencetype.TypeCustomField, error)
	DetachCustomField(ctx context.Context, typeID id.EvidenceTypeID, fieldID id.CustomFieldID) error
	AttachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) (*evidencetype.TypeQualityControl, error)
	DetachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) error
	ListQualityControls(ctx context.Context, typeID id.EvidenceTypeID) ([]*evidencetype.TypeQualityControl, error)
}

// Handler wires evidence-type endpoints to the schema service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence-type endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/evidence-type", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/schema", h.HandleSchema)
		r.Post("/{id}/custom-field", h.HandleAttachField)
		r.Delete("/{id}/custom-field/{fieldID}", h.HandleDetachField)
		r.Get("/{id}/quality-control", h.HandleListQualityControls)
		r.Post("/{id}/quality-control", h.HandleAttachQualityControl)
		r.Delete("/{id}/quality-control/{qcID}", h.HandleDetachQualityControl)
	})
}

type createRequest struct {
	Name               string `json:"name"`
	Alias              string `json:"alias"`
	GroupID            int64  `json:"group_id"`
	ParentID           *int64 `json:"parent_id,omitempty"`
	AttachmentRequired bool   `json:"attachment_required"`
	SignatureRequired  bool   `json:"signature_required"`
	AuthRequired       bool   `json:"auth_required"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	var parentID *id.EvidenceTypeID
	if req.ParentID != nil {
		pid := id.EvidenceTypeID(*req.ParentID)
		parentID = &pid
	}
	t, err := h.service.Create(ctx, evidencetype.CreateInput{
		Name:               req.Name,
		Alias:              req.Alias,
		GroupID:            id.EvidenceGroupID(req.GroupID),
		ParentID:           parentID,
		AttachmentRequired: req.AttachmentRequired,
		SignatureRequired:  req.SignatureRequired,
		AuthRequired:       req.AuthRequired,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence type creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"alias", req.Alias,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if alias := r.URL.Query().Get("alias"); alias != "" {
		t, err := h.service.GetByAlias(r.Context(), alias)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, []*evidencetype.EvidenceType{t})
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	types, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, types)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), typeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

type updateRequest struct {
	Name               *string `json:"name,omitempty"`
	GroupID            *int64  `json:"group_id,omitempty"`
	ParentID           *int64  `json:"parent_id,omitempty"`
	Reparent           bool    `json:"reparent,omitempty"`
	AttachmentRequired *bool   `json:"attachment_required,omitempty"`
	SignatureRequired  *bool   `json:"signature_required,omitempty"`
	AuthRequired       *bool   `json:"auth_required,omitempty"`
	Active             *bool   `json:"is_active,omitempty"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[updateRequest](w, r)
	if !ok {
		return
	}
	in := evidencetype.UpdateInput{
		Name:               req.Name,
		Reparent:           req.Reparent,
		AttachmentRequired: req.AttachmentRequired,
		SignatureRequired:  req.SignatureRequired,
		AuthRequired:       req.AuthRequired,
		Active:             req.Active,
	}
	if req.GroupID != nil {
		gid := id.EvidenceGroupID(*req.GroupID)
		in.GroupID = &gid
	}
	if req.ParentID != nil {
		pid := id.EvidenceTypeID(*req.ParentID)
		in.ParentID = &pid
	}
	t, err := h.service.Update(r.Context(), typeID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), typeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	schema, err := h.service.Schema(r.Context(), typeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schema)
}

type attachFieldRequest struct {
	CustomFieldID int64  `json:"custom_field_id"`
	Mandatory     bool   `json:"mandatory"`
	GroupLabel    string `json:"group_label,omitempty"`
}

func (h *Handler) HandleAttachField(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[attachFieldRequest](w, r)
	if !ok {
		return
	}
	link, err := h.service.AttachCustomField(r.Context(), typeID, evidencetype.AttachFieldInput{
		CustomFieldID: id.CustomFieldID(req.CustomFieldID),
		Mandatory:     req.Mandatory,
		GroupLabel:    req.GroupLabel,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) HandleDetachField(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	fieldID, ok := parseID(w, r, "fieldID", "invalid custom field id")
	if !ok {
		return
	}
	if err := h.service.DetachCustomField(r.Context(), typeID, id.CustomFieldID(fieldID)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListQualityControls(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	links, err := h.service.ListQualityControls(r.Context(), typeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, links)
}

type attachQCRequest struct {
	QualityControlID int64 `json:"quality_control_id"`
}

func (h *Handler) HandleAttachQualityControl(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[attachQCRequest](w, r)
	if !ok {
		return
	}
	link, err := h.service.AttachQualityControl(r.Context(), typeID, id.QualityControlID(req.QualityControlID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) HandleDetachQualityControl(w http.ResponseWriter, r *http.Request) {
	typeID, ok := typeIDFromURL(w, r)
	if !ok {
		return
	}
	qcID, ok := parseID(w, r, "qcID", "invalid quality control id")
	if !ok {
		return
	}
	if err := h.service.DetachQualityControl(r.Context(), typeID, id.QualityControlID(qcID)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func typeIDFromURL(w http.ResponseWriter, r *http.Request) (id.EvidenceTypeID, bool) {
	n, ok := parseID(w, r, "id", "invalid evidence type id")
	return id.EvidenceTypeID(n), ok
}

func parseID(w http.ResponseWriter, r *http.Request, param, message string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, message))
		return 0, false
	}
	return n, true
}
