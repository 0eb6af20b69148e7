package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/evidence"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the evidence operations the handler needs.
type Service interface {
	Create(ctx context.Context, in evidence.CreateInput) (*evidence.Detail, error)
	Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Detail, error)
	List(ctx context.Context, filter evidence.ListFilter) ([]*evidence.Evidence, error)
	UpdateAuth(ctx context.Context, authID id.AuthID, newStatus evidence.ReviewStatus) (*evidence.EvidenceAuth, error)
	UpdateSignature(ctx context.Context, sigID id.SignatureID, newStatus evidence.ReviewStatus) (*evidence.EvidenceSignature, error)
	CreateFinding(ctx context.Context, evidenceID id.EvidenceID, qcID id.QualityControlID, comments string) (*evidence.EvidenceFinding, error)
	UpdateFinding(ctx context.Context, findingID id.FindingID, in evidence.UpdateFindingInput) (*evidence.EvidenceFinding, error)
	AddComment(ctx context.Context, evidenceID id.EvidenceID, text string) (*evidence.EvidenceComment, error)
	RegisterFile(ctx context.Context, name, contentType string, size int64) (*evidence.UploadedFile, error)
}

// Handler wires evidence lifecycle endpoints to the evidence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/evidence", func(r chi.Router) {
		r.Post("/create", h.HandleCreate)
		r.Get("/list", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/comment", h.HandleAddComment)
		r.Post("/{id}/finding", h.HandleCreateFinding)
		r.Post("/file", h.HandleRegisterFile)
	})
	r.Patch("/evidence-auth/{id}", h.HandleUpdateAuth)
	r.Patch("/evidence-signature/{id}", h.HandleUpdateSignature)
	r.Patch("/evidence-finding/{id}", h.HandleUpdateFinding)
}

type createRequest struct {
	OwnerID        int64   `json:"owner_id"`
	TypeID         int64   `json:"type_id"`
	StatusID       int64   `json:"status_id"`
	ParentID       *int64  `json:"parent_id,omitempty"`
	UploadedFileID *int64  `json:"uploaded_file_id,omitempty"`
	Authorizers    []int64 `json:"authorizers,omitempty"`
	Signers        []int64 `json:"signers,omitempty"`
	// Eav arrives as a JSON object encoded into a string, matching the
	// upload clients that send dynamic fields through multipart forms.
	Eav string `json:"eav,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	values := map[string]any{}
	if req.Eav != "" {
		if err := json.Unmarshal([]byte(req.Eav), &values); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "eav must be a JSON object string"))
			return
		}
	}
	in := evidence.CreateInput{
		OwnerID:  id.UserID(req.OwnerID),
		TypeID:   id.EvidenceTypeID(req.TypeID),
		StatusID: id.EvidenceStatusID(req.StatusID),
		Values:   values,
	}
	if req.ParentID != nil {
		pid := id.EvidenceID(*req.ParentID)
		in.ParentID = &pid
	}
	if req.UploadedFileID != nil {
		fid := id.FileID(*req.UploadedFileID)
		in.UploadedFileID = &fid
	}
	for _, userID := range req.Authorizers {
		in.Authorizers = append(in.Authorizers, id.UserID(userID))
	}
	for _, userID := range req.Signers {
		in.Signers = append(in.Signers, id.UserID(userID))
	}

	detail, err := h.service.Create(ctx, in)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"type_id", req.TypeID,
			"owner_id", req.OwnerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter evidence.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid status filter"))
			return
		}
		statusID := id.EvidenceStatusID(n)
		filter.StatusID = &statusID
	}
	evidences, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, evidences)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := evidenceIDFromURL(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), evidenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

type reviewRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, ok := parseID(w, r, "id", "invalid authorization id")
	if !ok {
		return
	}
	req, ok := httputil.Decode[reviewRequest](w, r)
	if !ok {
		return
	}
	status, err := evidence.ParseReviewStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.UpdateAuth(ctx, id.AuthID(n), status)
	if err != nil {
		h.logger.ErrorContext(ctx, "authorization update failed",
			"request_id", requestcontext.RequestID(ctx),
			"auth_id", n,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleUpdateSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, ok := parseID(w, r, "id", "invalid signature id")
	if !ok {
		return
	}
	req, ok := httputil.Decode[reviewRequest](w, r)
	if !ok {
		return
	}
	status, err := evidence.ParseReviewStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sig, err := h.service.UpdateSignature(ctx, id.SignatureID(n), status)
	if err != nil {
		h.logger.ErrorContext(ctx, "signature update failed",
			"request_id", requestcontext.RequestID(ctx),
			"signature_id", n,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sig)
}

type createFindingRequest struct {
	QualityControlID int64  `json:"quality_control_id"`
	Comments         string `json:"comments,omitempty"`
}

func (h *Handler) HandleCreateFinding(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := evidenceIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[createFindingRequest](w, r)
	if !ok {
		return
	}
	f, err := h.service.CreateFinding(r.Context(), evidenceID, id.QualityControlID(req.QualityControlID), req.Comments)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

type updateFindingRequest struct {
	Status   *string `json:"status,omitempty"`
	Comments *string `json:"comments,omitempty"`
}

func (h *Handler) HandleUpdateFinding(w http.ResponseWriter, r *http.Request) {
	n, ok := parseID(w, r, "id", "invalid finding id")
	if !ok {
		return
	}
	req, ok := httputil.Decode[updateFindingRequest](w, r)
	if !ok {
		return
	}
	var in evidence.UpdateFindingInput
	if req.Status != nil {
		status, err := evidence.ParseFindingStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.Status = &status
	}
	in.Comments = req.Comments
	f, err := h.service.UpdateFinding(r.Context(), id.FindingID(n), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := evidenceIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[commentRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.AddComment(r.Context(), evidenceID, req.Text)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

type registerFileRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

func (h *Handler) HandleRegisterFile(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerFileRequest](w, r)
	if !ok {
		return
	}
	f, err := h.service.RegisterFile(r.Context(), req.Name, req.ContentType, req.Size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func evidenceIDFromURL(w http.ResponseWriter, r *http.Request) (id.EvidenceID, bool) {
	n, ok := parseID(w, r, "id", "invalid evidence id")
	return id.EvidenceID(n), ok
}

func parseID(w http.ResponseWriter, r *http.Request, param, message string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, message))
		return 0, false
	}
	return n, true
}
