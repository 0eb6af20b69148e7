package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/workflow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the workflow catalog operations the handler needs.
type Service interface {
	CreateGroup(ctx context.Context, name, alias, description string) (*workflow.EvidenceGroup, error)
	ListGroups(ctx context.Context, activeOnly bool) ([]*workflow.EvidenceGroup, error)
	CreateStage(ctx context.Context, name string, position int, description string) (*workflow.EvidenceStage, error)
	ListStages(ctx context.Context, activeOnly bool) ([]*workflow.EvidenceStage, error)
	CreateStatus(ctx context.Context, name string, position int, color, description string,
		stageID id.EvidenceStageID, groupID id.EvidenceGroupID) (*workflow.EvidenceStatus, error)
	ListStatuses(ctx context.Context, groupID id.EvidenceGroupID) ([]*workflow.EvidenceStatus, error)
	CreateQualityControl(ctx context.Context, name string) (*workflow.QualityControl, error)
	ListQualityControls(ctx context.Context, activeOnly bool) ([]*workflow.QualityControl, error)
	DeactivateQualityControl(ctx context.Context, qcID id.QualityControlID) (*workflow.QualityControl, error)
}

// Handler wires workflow catalog endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workflow catalog endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/workflow", func(r chi.Router) {
		r.Post("/group", h.HandleCreateGroup)
		r.Get("/group", h.HandleListGroups)
		r.Post("/stage", h.HandleCreateStage)
		r.Get("/stage", h.HandleListStages)
		r.Post("/status", h.HandleCreateStatus)
		r.Get("/status", h.HandleListStatuses)
		r.Post("/quality-control", h.HandleCreateQualityControl)
		r.Get("/quality-control", h.HandleListQualityControls)
		r.Post("/quality-control/{id}/deactivate", h.HandleDeactivateQualityControl)
	})
}

type groupRequest struct {
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[groupRequest](w, r)
	if !ok {
		return
	}
	g, err := h.service.CreateGroup(r.Context(), req.Name, req.Alias, req.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, g)
}

func (h *Handler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, groups)
}

type stageRequest struct {
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) HandleCreateStage(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[stageRequest](w, r)
	if !ok {
		return
	}
	st, err := h.service.CreateStage(r.Context(), req.Name, req.Position, req.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) HandleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.service.ListStages(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stages)
}

type statusRequest struct {
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
	StageID     int64  `json:"stage_id"`
	GroupID     int64  `json:"group_id"`
}

func (h *Handler) HandleCreateStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[statusRequest](w, r)
	if !ok {
		return
	}
	st, err := h.service.CreateStatus(r.Context(), req.Name, req.Position, req.Color, req.Description,
		id.EvidenceStageID(req.StageID), id.EvidenceGroupID(req.GroupID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) HandleListStatuses(w http.ResponseWriter, r *http.Request) {
	var groupID id.EvidenceGroupID
	if raw := r.URL.Query().Get("group"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid group filter"))
			return
		}
		groupID = id.EvidenceGroupID(n)
	}
	statuses, err := h.service.ListStatuses(r.Context(), groupID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}

type qualityControlRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleCreateQualityControl(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[qualityControlRequest](w, r)
	if !ok {
		return
	}
	qc, err := h.service.CreateQualityControl(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, qc)
}

func (h *Handler) HandleListQualityControls(w http.ResponseWriter, r *http.Request) {
	qcs, err := h.service.ListQualityControls(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, qcs)
}

func (h *Handler) HandleDeactivateQualityControl(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid quality control id"))
		return
	}
	qc, err := h.service.DeactivateQualityControl(r.Context(), id.QualityControlID(n))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, qc)
}
