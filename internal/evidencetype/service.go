package evidencetype

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/authz"
	"custodia/internal/customfield"
	"custodia/internal/workflow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// GroupCatalog is the slice of the workflow service this module needs to
// validate group references.
type GroupCatalog interface {
	GetGroup(ctx context.Context, groupID id.EvidenceGroupID) (*workflow.EvidenceGroup, error)
	GetQualityControl(ctx context.Context, qcID id.QualityControlID) (*workflow.QualityControl, error)
}

// FieldCatalog resolves custom fields when building a type's schema.
type FieldCatalog interface {
	Get(ctx context.Context, fieldID id.CustomFieldID) (*customfield.CustomField, error)
}

// SchemaCache caches resolved schemas. A nil cache disables caching; the
// service treats every miss identically.
type SchemaCache interface {
	Get(ctx context.Context, typeID id.EvidenceTypeID) ([]SchemaField, bool)
	Set(ctx context.Context, typeID id.EvidenceTypeID, schema []SchemaField)
	Invalidate(ctx context.Context, typeID id.EvidenceTypeID)
}

// Service manages the evidence type catalog and its schema associations.
type Service struct {
	store  Store
	groups GroupCatalog
	fields FieldCatalog
	cache  SchemaCache
	logger *slog.Logger
}

func NewService(store Store, groups GroupCatalog, fields FieldCatalog, cache SchemaCache, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		groups: groups,
		fields: fields,
		cache:  cache,
		logger: logger,
	}
}

// CreateInput carries the type creation request. Level is absent on purpose:
// it is derived from the parent.
type CreateInput struct {
	Name               string
	Alias              string
	GroupID            id.EvidenceGroupID
	ParentID           *id.EvidenceTypeID
	AttachmentRequired bool
	SignatureRequired  bool
	AuthRequired       bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*EvidenceType, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceEvidenceType); err != nil {
		return nil, err
	}
	t, err := NewEvidenceType(in.Name, in.Alias, in.GroupID, in.ParentID,
		in.AttachmentRequired, in.SignatureRequired, in.AuthRequired, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := s.groups.GetGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}
	level, err := s.levelFor(ctx, in.ParentID)
	if err != nil {
		return nil, err
	}
	t.Level = level
	if err := s.store.Create(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "type alias %q already exists", in.Alias)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create evidence type")
	}
	s.logger.InfoContext(ctx, "evidence type created", "type_id", t.ID, "alias", t.Alias, "level", t.Level)
	return t, nil
}

func (s *Service) Get(ctx context.Context, typeID id.EvidenceTypeID) (*EvidenceType, error) {
	t, err := s.store.FindByID(ctx, typeID)
	if err != nil {
		return nil, wrapTypeLookup(err)
	}
	return t, nil
}

func (s *Service) GetByAlias(ctx context.Context, alias string) (*EvidenceType, error) {
	t, err := s.store.FindByAlias(ctx, alias)
	if err != nil {
		return nil, wrapTypeLookup(err)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*EvidenceType, error) {
	types, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence types")
	}
	return types, nil
}

// UpdateInput carries mutable type metadata. Alias is immutable; moving a
// type reparents it and recomputes its level.
type UpdateInput struct {
	Name               *string
	GroupID            *id.EvidenceGroupID
	ParentID           *id.EvidenceTypeID
	Reparent           bool
	AttachmentRequired *bool
	SignatureRequired  *bool
	AuthRequired       *bool
	Active             *bool
}

func (s *Service) Update(ctx context.Context, typeID id.EvidenceTypeID, in UpdateInput) (*EvidenceType, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceEvidenceType); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "type name cannot be empty")
		}
		t.Name = *in.Name
	}
	if in.GroupID != nil {
		if _, err := s.groups.GetGroup(ctx, *in.GroupID); err != nil {
			return nil, err
		}
		t.GroupID = *in.GroupID
	}
	reparented := false
	if in.Reparent {
		if in.ParentID != nil && *in.ParentID == typeID {
			return nil, dErrors.New(dErrors.CodeValidation, "type cannot be its own parent")
		}
		if err := s.ensureNotDescendant(ctx, typeID, in.ParentID); err != nil {
			return nil, err
		}
		level, err := s.levelFor(ctx, in.ParentID)
		if err != nil {
			return nil, err
		}
		t.ParentID = in.ParentID
		reparented = t.Level != level
		t.Level = level
	}
	if in.AttachmentRequired != nil {
		t.AttachmentRequired = *in.AttachmentRequired
	}
	if in.SignatureRequired != nil {
		t.SignatureRequired = *in.SignatureRequired
	}
	if in.AuthRequired != nil {
		t.AuthRequired = *in.AuthRequired
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
	t.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence type")
	}
	if reparented {
		if err := s.relevelDescendants(ctx, t); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, typeID)
	return t, nil
}

// ensureNotDescendant walks the candidate parent's ancestry and rejects the
// move when typeID appears in it, which would detach the subtree into a cycle.
func (s *Service) ensureNotDescendant(ctx context.Context, typeID id.EvidenceTypeID, parentID *id.EvidenceTypeID) error {
	for parentID != nil {
		if *parentID == typeID {
			return dErrors.New(dErrors.CodeValidation, "type cannot be moved under one of its own descendants")
		}
		ancestor, err := s.store.FindByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "parent evidence type not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
		}
		parentID = ancestor.ParentID
	}
	return nil
}

// relevelDescendants walks the subtree under root breadth-first and rewrites
// each descendant's level so the parent.Level+1 invariant holds after a move.
func (s *Service) relevelDescendants(ctx context.Context, root *EvidenceType) error {
	queue := []*EvidenceType{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children, err := s.store.ListChildren(ctx, parent.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list child types")
		}
		for _, child := range children {
			if child.Level != parent.Level+1 {
				child.Level = parent.Level + 1
				child.UpdatedAt = requestcontext.Now(ctx)
				if err := s.store.Update(ctx, child); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update child type level")
				}
			}
			queue = append(queue, child)
		}
	}
	return nil
}

// Delete removes a leaf type. Types with children must be reparented or
// deleted bottom-up first.
func (s *Service) Delete(ctx context.Context, typeID id.EvidenceTypeID) error {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionDelete, authz.ResourceEvidenceType); err != nil {
		return err
	}
	children, err := s.store.CountChildren(ctx, typeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count child types")
	}
	if children > 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"evidence type has %d child type(s); delete or reparent them first", children)
	}
	if err := s.store.Delete(ctx, typeID); err != nil {
		return wrapTypeLookup(err)
	}
	s.invalidate(ctx, typeID)
	return nil
}

// AttachFieldInput configures one field association.
type AttachFieldInput struct {
	CustomFieldID id.CustomFieldID
	Mandatory     bool
	GroupLabel    string
}

func (s *Service) AttachCustomField(ctx context.Context, typeID id.EvidenceTypeID, in AttachFieldInput) (*TypeCustomField, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceEvidenceType); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, typeID); err != nil {
		return nil, err
	}
	if _, err := s.fields.Get(ctx, in.CustomFieldID); err != nil {
		return nil, err
	}
	label := in.GroupLabel
	if label == "" {
		label = DefaultGroupLabel
	}
	link := &TypeCustomField{
		TypeID:        typeID,
		CustomFieldID: in.CustomFieldID,
		Mandatory:     in.Mandatory,
		GroupLabel:    label,
		Active:        true,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.AttachCustomField(ctx, link); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "custom field is already attached to this type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach custom field")
	}
	s.invalidate(ctx, typeID)
	return link, nil
}

func (s *Service) DetachCustomField(ctx context.Context, typeID id.EvidenceTypeID, fieldID id.CustomFieldID) error {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceEvidenceType); err != nil {
		return err
	}
	if err := s.store.DetachCustomField(ctx, typeID, fieldID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "custom field is not attached to this type")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach custom field")
	}
	s.invalidate(ctx, typeID)
	return nil
}

func (s *Service) AttachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) (*TypeQualityControl, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceEvidenceType); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, typeID); err != nil {
		return nil, err
	}
	if _, err := s.groups.GetQualityControl(ctx, qcID); err != nil {
		return nil, err
	}
	link := &TypeQualityControl{
		TypeID:           typeID,
		QualityControlID: qcID,
		CreatedAt:        requestcontext.Now(ctx),
	}
	if err := s.store.AttachQualityControl(ctx, link); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "quality control is already attached to this type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach quality control")
	}
	return link, nil
}

func (s *Service) DetachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) error {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceEvidenceType); err != nil {
		return err
	}
	if err := s.store.DetachQualityControl(ctx, typeID, qcID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "quality control is not attached to this type")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach quality control")
	}
	return nil
}

func (s *Service) ListQualityControls(ctx context.Context, typeID id.EvidenceTypeID) ([]*TypeQualityControl, error) {
	if _, err := s.Get(ctx, typeID); err != nil {
		return nil, err
	}
	links, err := s.store.ListQualityControls(ctx, typeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list type quality controls")
	}
	return links, nil
}

// Schema resolves the type's field associations into render-ready entries,
// reading through the cache when one is configured.
func (s *Service) Schema(ctx context.Context, typeID id.EvidenceTypeID) ([]SchemaField, error) {
	if s.cache != nil {
		if schema, ok := s.cache.Get(ctx, typeID); ok {
			return schema, nil
		}
	}
	if _, err := s.Get(ctx, typeID); err != nil {
		return nil, err
	}
	links, err := s.store.ListCustomFields(ctx, typeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list type custom fields")
	}
	schema := make([]SchemaField, 0, len(links))
	for _, link := range links {
		field, err := s.fields.Get(ctx, link.CustomFieldID)
		if err != nil {
			return nil, err
		}
		schema = append(schema, SchemaField{
			CustomField: field,
			Mandatory:   link.Mandatory,
			GroupLabel:  link.GroupLabel,
			Active:      link.Active,
		})
	}
	if s.cache != nil {
		s.cache.Set(ctx, typeID, schema)
	}
	return schema, nil
}

func (s *Service) levelFor(ctx context.Context, parentID *id.EvidenceTypeID) (int, error) {
	if parentID == nil {
		return 0, nil
	}
	parent, err := s.store.FindByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "parent evidence type not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	return parent.Level + 1, nil
}

func (s *Service) invalidate(ctx context.Context, typeID id.EvidenceTypeID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, typeID)
	}
}

func wrapTypeLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "evidence type not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
