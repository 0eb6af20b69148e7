package evidence

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"custodia/internal/authz"
	"custodia/internal/evidencetype"
	"custodia/internal/platform/metrics"
	"custodia/internal/user"
	"custodia/internal/workflow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
)

// TypeCatalog is the slice of the evidence-type service this module needs.
type TypeCatalog interface {
	Get(ctx context.Context, typeID id.EvidenceTypeID) (*evidencetype.EvidenceType, error)
	Schema(ctx context.Context, typeID id.EvidenceTypeID) ([]evidencetype.SchemaField, error)
}

// WorkflowCatalog resolves statuses and quality controls.
type WorkflowCatalog interface {
	GetStatus(ctx context.Context, statusID id.EvidenceStatusID) (*workflow.EvidenceStatus, error)
	GetQualityControl(ctx context.Context, qcID id.QualityControlID) (*workflow.QualityControl, error)
}

// Directory resolves users referenced by evidences and workflow records.
type Directory interface {
	Get(ctx context.Context, userID id.UserID) (*user.User, error)
}

// ValueStore reads and writes the dynamic attributes of an evidence.
type ValueStore interface {
	BulkSet(ctx context.Context, evidenceID id.EvidenceID, fields map[string]any) error
	Values(ctx context.Context, evidenceID id.EvidenceID) (map[string]any, error)
}

// Auditor appends audit events inside the caller's transaction.
type Auditor interface {
	Record(ctx context.Context, action, entity string, entityID int64) error
}

// Notifier dispatches workflow side effects after a mutation commits.
// Implementations are best-effort and never fail the mutation.
type Notifier interface {
	CommentAdded(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string)
	FindingCreated(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string)
	FindingUpdated(ctx context.Context, evidenceID id.EvidenceID, ownerID id.UserID, typeName string)
}

// Service manages the evidence lifecycle.
type Service struct {
	store    Store
	types    TypeCatalog
	catalog  WorkflowCatalog
	users    Directory
	values   ValueStore
	audit    Auditor
	notifier Notifier
	tx       tx.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(store Store, types TypeCatalog, catalog WorkflowCatalog, users Directory,
	values ValueStore, auditor Auditor, notifier Notifier, txRunner tx.Runner,
	m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		types:    types,
		catalog:  catalog,
		users:    users,
		values:   values,
		audit:    auditor,
		notifier: notifier,
		tx:       txRunner,
		metrics:  m,
		logger:   logger,
	}
}

// CreateInput carries an evidence creation request.
type CreateInput struct {
	OwnerID        id.UserID
	TypeID         id.EvidenceTypeID
	StatusID       id.EvidenceStatusID
	ParentID       *id.EvidenceID
	UploadedFileID *id.FileID
	Authorizers    []id.UserID
	Signers        []id.UserID
	Values         map[string]any
}

// Create persists a new evidence with its dynamic attributes and one
// pending authorization/signature row per assigned user, all in one
// transaction, and returns the stored record with its written values and
// review rows. Creation emits no notifications.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Detail, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionAdd, authz.ResourceEvidence); err != nil {
		return nil, err
	}
	if in.OwnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence requires an owner")
	}

	var (
		etype  *evidencetype.EvidenceType
		schema []evidencetype.SchemaField
		status *workflow.EvidenceStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.types.Get(gctx, in.TypeID)
		if err != nil {
			return err
		}
		etype = t
		sch, err := s.types.Schema(gctx, in.TypeID)
		if err != nil {
			return err
		}
		schema = sch
		return nil
	})
	g.Go(func() error {
		st, err := s.catalog.GetStatus(gctx, in.StatusID)
		if err != nil {
			return err
		}
		status = st
		return nil
	})
	g.Go(func() error {
		_, err := s.users.Get(gctx, in.OwnerID)
		return err
	})
	if in.ParentID != nil {
		parentID := *in.ParentID
		g.Go(func() error {
			if _, err := s.store.FindByID(gctx, parentID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "parent evidence not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
			}
			return nil
		})
	}
	if in.UploadedFileID != nil {
		fileID := *in.UploadedFileID
		g.Go(func() error {
			if _, err := s.store.FindFile(gctx, fileID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "uploaded file not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
			}
			return nil
		})
	}
	for _, userID := range in.Authorizers {
		userID := userID
		g.Go(func() error {
			_, err := s.users.Get(gctx, userID)
			return err
		})
	}
	for _, userID := range in.Signers {
		userID := userID
		g.Go(func() error {
			_, err := s.users.Get(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if status.GroupID != etype.GroupID {
		return nil, dErrors.New(dErrors.CodeValidation,
			"status does not belong to the workflow group of the evidence type")
	}
	if etype.AttachmentRequired && in.UploadedFileID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence type requires an attachment")
	}
	if etype.AuthRequired && len(in.Authorizers) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence type requires at least one authorizer")
	}
	if etype.SignatureRequired && len(in.Signers) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence type requires at least one signer")
	}
	if err := validateMandatoryFields(schema, in.Values); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	e := &Evidence{
		StatusID:         in.StatusID,
		TypeID:           in.TypeID,
		OwnerID:          in.OwnerID,
		ParentID:         in.ParentID,
		PendingAuth:      len(in.Authorizers) > 0,
		PendingSignature: len(in.Signers) > 0,
		UploadedFileID:   in.UploadedFileID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	var (
		values     map[string]any
		auths      []*EvidenceAuth
		signatures []*EvidenceSignature
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create evidence")
		}
		if err := s.values.BulkSet(txCtx, e.ID, in.Values); err != nil {
			return err
		}
		for _, userID := range in.Authorizers {
			a := &EvidenceAuth{
				EvidenceID: e.ID,
				UserID:     userID,
				Status:     ReviewPending,
				Version:    1,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.CreateAuth(txCtx, a); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeValidation, "duplicate authorizer")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authorization record")
			}
			auths = append(auths, a)
		}
		for _, userID := range in.Signers {
			sig := &EvidenceSignature{
				EvidenceID: e.ID,
				UserID:     userID,
				Status:     ReviewPending,
				Version:    1,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.CreateSignature(txCtx, sig); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeValidation, "duplicate signer")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create signature record")
			}
			signatures = append(signatures, sig)
		}
		stored, err := s.values.Values(txCtx, e.ID)
		if err != nil {
			return err
		}
		values = stored
		return s.record(txCtx, "evidence.created", "evidence", int64(e.ID))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEvidencesCreated()
	s.logger.InfoContext(ctx, "evidence created",
		"evidence_id", e.ID,
		"type_id", e.TypeID,
		"owner_id", e.OwnerID,
		"authorizers", len(in.Authorizers),
		"signers", len(in.Signers),
	)
	return &Detail{
		Evidence:   e,
		Values:     values,
		Auths:      auths,
		Signatures: signatures,
	}, nil
}

// Detail is an evidence with its dynamic values and workflow records.
type Detail struct {
	Evidence   *Evidence            `json:"evidence"`
	Values     map[string]any       `json:"values"`
	Auths      []*EvidenceAuth      `json:"auths"`
	Signatures []*EvidenceSignature `json:"signatures"`
	Findings   []*EvidenceFinding   `json:"findings"`
	Comments   []*EvidenceComment   `json:"comments"`
	// InReview is derived: true while any finding is not yet completed
	// or rejected.
	InReview bool `json:"in_review"`
}

func (s *Service) Get(ctx context.Context, evidenceID id.EvidenceID) (*Detail, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionView, authz.ResourceEvidence); err != nil {
		return nil, err
	}
	e, err := s.find(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	values, err := s.values.Values(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	auths, err := s.store.ListAuths(ctx, evidenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorization records")
	}
	signatures, err := s.store.ListSignatures(ctx, evidenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list signature records")
	}
	findings, err := s.store.ListFindings(ctx, evidenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list findings")
	}
	comments, err := s.store.ListComments(ctx, evidenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list comments")
	}
	return &Detail{
		Evidence:   e,
		Values:     values,
		Auths:      auths,
		Signatures: signatures,
		Findings:   findings,
		Comments:   comments,
		InReview:   inReview(findings),
	}, nil
}

// List returns top-level evidences, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Evidence, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionView, authz.ResourceEvidence); err != nil {
		return nil, err
	}
	evidences, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidences")
	}
	return evidences, nil
}

// UpdateAuth saves an authorization decision. Every save bumps the record
// version; a completed record cannot go back to pending.
func (s *Service) UpdateAuth(ctx context.Context, authID id.AuthID, newStatus ReviewStatus) (*EvidenceAuth, error) {
	a, err := s.store.FindAuth(ctx, authID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "authorization record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	e, err := s.find(ctx, a.EvidenceID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignment(ctx, authz.ResourceEvidenceAuth, a.UserID, e.OwnerID); err != nil {
		return nil, err
	}
	if a.Status == ReviewCompleted && newStatus == ReviewPending {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot reopen a completed authorization")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a.Status = newStatus
		a.Version++
		a.UpdatedAt = now
		if err := s.store.UpdateAuth(txCtx, a); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update authorization record")
		}
		auths, err := s.store.ListAuths(txCtx, e.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorization records")
		}
		e.PendingAuth = anyPendingAuth(auths)
		e.UpdatedAt = now
		if err := s.store.Update(txCtx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence")
		}
		return s.record(txCtx, "evidence.auth_updated", "evidence_auth", int64(a.ID))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "authorization updated",
		"auth_id", a.ID, "evidence_id", e.ID, "status", a.Status, "version", a.Version)
	return a, nil
}

// UpdateSignature saves a signature decision with the same rules as
// UpdateAuth.
func (s *Service) UpdateSignature(ctx context.Context, sigID id.SignatureID, newStatus ReviewStatus) (*EvidenceSignature, error) {
	sig, err := s.store.FindSignature(ctx, sigID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "signature record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	e, err := s.find(ctx, sig.EvidenceID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignment(ctx, authz.ResourceSignature, sig.UserID, e.OwnerID); err != nil {
		return nil, err
	}
	if sig.Status == ReviewCompleted && newStatus == ReviewPending {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot reopen a completed signature")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sig.Status = newStatus
		sig.Version++
		sig.UpdatedAt = now
		if err := s.store.UpdateSignature(txCtx, sig); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update signature record")
		}
		signatures, err := s.store.ListSignatures(txCtx, e.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list signature records")
		}
		e.PendingSignature = anyPendingSignature(signatures)
		e.UpdatedAt = now
		if err := s.store.Update(txCtx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence")
		}
		return s.record(txCtx, "evidence.signature_updated", "evidence_signature", int64(sig.ID))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "signature updated",
		"signature_id", sig.ID, "evidence_id", e.ID, "status", sig.Status, "version", sig.Version)
	return sig, nil
}

// CreateFinding opens a quality-control observation against an evidence at
// its current version.
func (s *Service) CreateFinding(ctx context.Context, evidenceID id.EvidenceID,
	qcID id.QualityControlID, comments string) (*EvidenceFinding, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionAdd, authz.ResourceFinding); err != nil {
		return nil, err
	}
	e, err := s.find(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetQualityControl(ctx, qcID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	f := &EvidenceFinding{
		EvidenceID:       evidenceID,
		QualityControlID: qcID,
		Status:           FindingPending,
		Comments:         comments,
		Version:          e.Version,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateFinding(txCtx, f); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict,
					"a finding for this quality control already exists at this evidence version")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create finding")
		}
		return s.record(txCtx, "evidence.finding_created", "evidence_finding", int64(f.ID))
	})
	if err != nil {
		return nil, err
	}

	s.notifyFindingCreated(ctx, e)
	return f, nil
}

// UpdateFindingInput carries mutable finding fields.
type UpdateFindingInput struct {
	Status   *FindingStatus
	Comments *string
}

func (s *Service) UpdateFinding(ctx context.Context, findingID id.FindingID, in UpdateFindingInput) (*EvidenceFinding, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionChange, authz.ResourceFinding); err != nil {
		return nil, err
	}
	f, err := s.store.FindFinding(ctx, findingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "finding not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	e, err := s.find(ctx, f.EvidenceID)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		f.Status = *in.Status
	}
	if in.Comments != nil {
		f.Comments = *in.Comments
	}
	f.UpdatedAt = requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateFinding(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update finding")
		}
		return s.record(txCtx, "evidence.finding_updated", "evidence_finding", int64(f.ID))
	})
	if err != nil {
		return nil, err
	}

	s.notifyFindingUpdated(ctx, e)
	return f, nil
}

// AddComment attaches a remark by the authenticated user.
func (s *Service) AddComment(ctx context.Context, evidenceID id.EvidenceID, text string) (*EvidenceComment, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionView, authz.ResourceEvidence); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "comment text cannot be empty")
	}
	e, err := s.find(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c := &EvidenceComment{
		EvidenceID: evidenceID,
		UserID:     subject.UserID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateComment(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create comment")
		}
		return s.record(txCtx, "evidence.comment_added", "evidence_comment", int64(c.ID))
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		typeName := s.typeName(ctx, e.TypeID)
		s.notifier.CommentAdded(ctx, e.ID, e.OwnerID, typeName)
	}
	return c, nil
}

// RegisterFile stores attachment metadata ahead of evidence creation.
func (s *Service) RegisterFile(ctx context.Context, name, contentType string, size int64) (*UploadedFile, error) {
	subject := authz.SubjectFromContext(ctx)
	if err := subject.Require(authz.ActionAdd, authz.ResourceEvidence); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file name cannot be empty")
	}
	if size < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "file size cannot be negative")
	}
	f := &UploadedFile{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register file")
	}
	return f, nil
}

func (s *Service) find(ctx context.Context, evidenceID id.EvidenceID) (*Evidence, error) {
	e, err := s.store.FindByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	return e, nil
}

func (s *Service) requireAssignment(ctx context.Context, resource authz.Resource,
	assigneeID, ownerID id.UserID) error {
	owner, err := s.users.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	subject := authz.SubjectFromContext(ctx)
	return subject.RequireAssignment(authz.Assignment{
		Resource:      resource,
		AssigneeID:    assigneeID,
		OwnerDivision: owner.DivisionID,
	})
}

func (s *Service) record(ctx context.Context, action, entity string, entityID int64) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, action, entity, entityID)
}

func (s *Service) notifyFindingCreated(ctx context.Context, e *Evidence) {
	if s.notifier == nil {
		return
	}
	s.notifier.FindingCreated(ctx, e.ID, e.OwnerID, s.typeName(ctx, e.TypeID))
}

func (s *Service) notifyFindingUpdated(ctx context.Context, e *Evidence) {
	if s.notifier == nil {
		return
	}
	s.notifier.FindingUpdated(ctx, e.ID, e.OwnerID, s.typeName(ctx, e.TypeID))
}

func (s *Service) typeName(ctx context.Context, typeID id.EvidenceTypeID) string {
	t, err := s.types.Get(ctx, typeID)
	if err != nil {
		s.logger.WarnContext(ctx, "type lookup for notification failed", "type_id", typeID, "error", err)
		return "evidence"
	}
	return t.Name
}

func validateMandatoryFields(schema []evidencetype.SchemaField, values map[string]any) error {
	var fieldErrors []dErrors.FieldError
	for _, field := range schema {
		if !field.Active || !field.Mandatory {
			continue
		}
		slug := field.CustomField.Attribute.Slug
		if _, ok := values[slug]; !ok {
			fieldErrors = append(fieldErrors, dErrors.FieldError{Field: slug, Message: "mandatory field is missing"})
		}
	}
	if len(fieldErrors) > 0 {
		return dErrors.New(dErrors.CodeValidation, "missing mandatory fields").WithFields(fieldErrors...)
	}
	return nil
}

func inReview(findings []*EvidenceFinding) bool {
	for _, f := range findings {
		if !f.Status.Terminal() {
			return true
		}
	}
	return false
}

func anyPendingAuth(auths []*EvidenceAuth) bool {
	for _, a := range auths {
		if a.Status == ReviewPending {
			return true
		}
	}
	return false
}

func anyPendingSignature(signatures []*EvidenceSignature) bool {
	for _, sig := range signatures {
		if sig.Status == ReviewPending {
			return true
		}
	}
	return false
}
