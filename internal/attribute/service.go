package attribute

import (
	"context"
	"errors"
	"log/slog"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service is the attribute registry: it defines the typed vocabulary custom
// fields are built from. Physical deletion is not offered here; the custom
// field catalog owns attribute lifecycles end to end.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Define registers a new attribute. The slug must be globally unique.
func (s *Service) Define(ctx context.Context, name, slug string, datatype Datatype, choices []string) (*Attribute, error) {
	attr, err := New(name, slug, datatype, choices, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, attr); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "attribute slug %q already exists", slug)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to define attribute")
	}
	s.logger.InfoContext(ctx, "attribute defined",
		"attribute_id", attr.ID,
		"slug", attr.Slug,
		"datatype", attr.Datatype,
	)
	return attr, nil
}

func (s *Service) Get(ctx context.Context, attrID id.AttributeID) (*Attribute, error) {
	attr, err := s.store.FindByID(ctx, attrID)
	if err != nil {
		return nil, wrapLookupErr(err, "attribute")
	}
	return attr, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Attribute, error) {
	attr, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		return nil, wrapLookupErr(err, "attribute")
	}
	return attr, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Attribute, error) {
	attrs, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attributes")
	}
	return attrs, nil
}

// Deactivate logically retires an attribute. Stored values keep referencing
// it; only the owning custom field's delete cascade removes the row.
func (s *Service) Deactivate(ctx context.Context, attrID id.AttributeID) (*Attribute, error) {
	attr, err := s.store.FindByID(ctx, attrID)
	if err != nil {
		return nil, wrapLookupErr(err, "attribute")
	}
	if !attr.Active {
		return attr, nil
	}
	attr.Deactivate(requestcontext.Now(ctx))
	if err := s.store.Update(ctx, attr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate attribute")
	}
	return attr, nil
}

func wrapLookupErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
