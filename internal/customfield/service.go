package customfield

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/attribute"
	"custodia/internal/authz"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
)

// AttributeRegistry is the slice of the attribute service this catalog needs.
type AttributeRegistry interface {
	Define(ctx context.Context, name, slug string, datatype attribute.Datatype, choices []string) (*attribute.Attribute, error)
	Get(ctx context.Context, attrID id.AttributeID) (*attribute.Attribute, error)
	Deactivate(ctx context.Context, attrID id.AttributeID) (*attribute.Attribute, error)
}

// AttributeRemover deletes attribute rows; only the delete cascade uses it.
// The attribute store satisfies this directly.
type AttributeRemover interface {
	Delete(ctx context.Context, attrID id.AttributeID) error
}

// ValueRemover purges stored dynamic values of an attribute.
type ValueRemover interface {
	DeleteByAttribute(ctx context.Context, attrID id.AttributeID) error
}

// TypeRefCounter reports which evidence types reference a custom field.
type TypeRefCounter interface {
	CountCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) (int, error)
	ListCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) ([]id.EvidenceTypeID, error)
}

// SchemaInvalidator drops cached schemas of evidence types whose resolved
// fields changed. A nil invalidator disables cache coordination.
type SchemaInvalidator interface {
	Invalidate(ctx context.Context, typeID id.EvidenceTypeID)
}

// Service governs the custom field catalog.
type Service struct {
	store    Store
	registry AttributeRegistry
	attrs    AttributeRemover
	values   ValueRemover
	refs     TypeRefCounter
	schemas  SchemaInvalidator
	tx       tx.Runner
	logger   *slog.Logger
}

func NewService(store Store, registry AttributeRegistry, attrs AttributeRemover,
	values ValueRemover, refs TypeRefCounter, schemas SchemaInvalidator,
	txRunner tx.Runner, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		attrs:    attrs,
		values:   values,
		refs:     refs,
		schemas:  schemas,
		tx:       txRunner,
		logger:   logger,
	}
}

// CreateInput carries the custom-field creation request: the wrapper
// metadata plus the backing attribute definition created alongside it.
type CreateInput struct {
	AttributeName string
	AttributeSlug string
	Datatype      attribute.Datatype
	Choices       []string
	Description   string
	CatalogHint   string
}

// Create defines the backing attribute and wraps it in one transaction.
// A duplicate slug fails the whole operation; no custom field is left behind.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CustomField, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceCustomField); err != nil {
		return nil, err
	}
	var field *CustomField
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		attr, err := s.registry.Define(txCtx, in.AttributeName, in.AttributeSlug, in.Datatype, in.Choices)
		if err != nil {
			return err
		}
		f, err := New(attr.ID, in.Description, in.CatalogHint, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.store.Create(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create custom field")
		}
		f.Attribute = attr
		field = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "custom field created",
		"custom_field_id", field.ID,
		"attribute_slug", field.Attribute.Slug,
	)
	return field, nil
}

// Get returns the field with its attribute resolved.
func (s *Service) Get(ctx context.Context, fieldID id.CustomFieldID) (*CustomField, error) {
	f, err := s.store.FindByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "custom field not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	if err := s.resolveAttribute(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*CustomField, error) {
	fields, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list custom fields")
	}
	for _, f := range fields {
		if err := s.resolveAttribute(ctx, f); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// UpdateInput carries mutable wrapper metadata.
type UpdateInput struct {
	Description *string
	CatalogHint *string
	Active      *bool
}

func (s *Service) Update(ctx context.Context, fieldID id.CustomFieldID, in UpdateInput) (*CustomField, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceCustomField); err != nil {
		return nil, err
	}
	f, err := s.Get(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if in.CatalogHint != nil {
		f.CatalogHint = *in.CatalogHint
	}
	if in.Active != nil {
		f.Active = *in.Active
	}
	f.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update custom field")
	}
	s.invalidateSchemas(ctx, fieldID)
	return f, nil
}

// Deactivate retires the field and its backing attribute for new writes.
func (s *Service) Deactivate(ctx context.Context, fieldID id.CustomFieldID) (*CustomField, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceCustomField); err != nil {
		return nil, err
	}
	f, err := s.Get(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f.Deactivate(requestcontext.Now(txCtx))
		if err := s.store.Update(txCtx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate custom field")
		}
		if _, err := s.registry.Deactivate(txCtx, f.AttributeID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSchemas(ctx, fieldID)
	return f, nil
}

// Delete removes the field, its backing attribute and every stored value,
// in one transaction. Fails while any evidence type still references it.
func (s *Service) Delete(ctx context.Context, fieldID id.CustomFieldID) error {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionDelete, authz.ResourceCustomField); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.store.FindByID(txCtx, fieldID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "custom field not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
		}

		refs, err := s.refs.CountCustomFieldRefs(txCtx, fieldID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count type references")
		}
		if refs > 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"custom field is referenced by %d evidence type(s); deactivate it instead", refs)
		}

		if err := s.values.DeleteByAttribute(txCtx, f.AttributeID); err != nil {
			return err
		}
		if err := s.store.Delete(txCtx, fieldID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete custom field")
		}
		if err := s.attrs.Delete(txCtx, f.AttributeID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete backing attribute")
		}
		s.logger.InfoContext(txCtx, "custom field deleted",
			"custom_field_id", fieldID,
			"attribute_id", f.AttributeID,
		)
		return nil
	})
}

// invalidateSchemas drops the cached schema of every type referencing the
// field so readers do not serve the old field definition for a full TTL.
func (s *Service) invalidateSchemas(ctx context.Context, fieldID id.CustomFieldID) {
	if s.schemas == nil {
		return
	}
	typeIDs, err := s.refs.ListCustomFieldRefs(ctx, fieldID)
	if err != nil {
		s.logger.WarnContext(ctx, "schema invalidation lookup failed",
			"custom_field_id", fieldID, "error", err)
		return
	}
	for _, typeID := range typeIDs {
		s.schemas.Invalidate(ctx, typeID)
	}
}

func (s *Service) resolveAttribute(ctx context.Context, f *CustomField) error {
	attr, err := s.registry.Get(ctx, f.AttributeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve backing attribute")
	}
	f.Attribute = attr
	return nil
}
