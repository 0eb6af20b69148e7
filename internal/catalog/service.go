package catalog

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/authz"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service exposes the same operations for every catalog; the Definition
// decides whether hierarchy inputs are honored.
type Service struct {
	store  Store
	defs   map[Kind]Definition
	logger *slog.Logger
}

func NewService(store Store, defs []Definition, logger *slog.Logger) *Service {
	byKind := make(map[Kind]Definition, len(defs))
	for _, d := range defs {
		byKind[d.Kind] = d
	}
	return &Service{store: store, defs: byKind, logger: logger}
}

func (s *Service) definition(kind Kind) (Definition, error) {
	d, ok := s.defs[kind]
	if !ok {
		return Definition{}, dErrors.Newf(dErrors.CodeNotFound, "unknown catalog %q", kind)
	}
	return d, nil
}

// CreateInput carries a catalog entry creation request. ParentID is
// rejected for flat catalogs.
type CreateInput struct {
	Name        string
	Description string
	ParentID    *id.CatalogID
}

func (s *Service) Create(ctx context.Context, kind Kind, in CreateInput) (*Entry, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceCatalog); err != nil {
		return nil, err
	}
	def, err := s.definition(kind)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil && !def.Hierarchical {
		return nil, dErrors.Newf(dErrors.CodeValidation, "catalog %q is flat and cannot nest entries", kind)
	}
	e, err := NewEntry(kind, in.Name, in.Description, in.ParentID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	level, err := s.levelFor(ctx, kind, in.ParentID)
	if err != nil {
		return nil, err
	}
	e.Level = level
	if err := s.store.Create(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "%s %q already exists", kind, in.Name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create catalog entry")
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, kind Kind, entryID id.CatalogID) (*Entry, error) {
	if _, err := s.definition(kind); err != nil {
		return nil, err
	}
	e, err := s.store.FindByID(ctx, kind, entryID)
	if err != nil {
		return nil, wrapEntryLookup(err, kind)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]*Entry, error) {
	if _, err := s.definition(kind); err != nil {
		return nil, err
	}
	entries, err := s.store.List(ctx, kind, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list catalog entries")
	}
	return entries, nil
}

// UpdateInput carries mutable entry fields. Reparent signals an explicit
// parent change so a nil ParentID can mean "move to root".
type UpdateInput struct {
	Name        *string
	Description *string
	ParentID    *id.CatalogID
	Reparent    bool
	Active      *bool
}

func (s *Service) Update(ctx context.Context, kind Kind, entryID id.CatalogID, in UpdateInput) (*Entry, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceCatalog); err != nil {
		return nil, err
	}
	def, err := s.definition(kind)
	if err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, kind, entryID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "catalog entry name cannot be empty")
		}
		e.Name = *in.Name
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	reparented := false
	if in.Reparent {
		if !def.Hierarchical {
			return nil, dErrors.Newf(dErrors.CodeValidation, "catalog %q is flat and cannot nest entries", kind)
		}
		if in.ParentID != nil && *in.ParentID == entryID {
			return nil, dErrors.New(dErrors.CodeValidation, "catalog entry cannot be its own parent")
		}
		if err := s.ensureNotDescendant(ctx, kind, entryID, in.ParentID); err != nil {
			return nil, err
		}
		level, err := s.levelFor(ctx, kind, in.ParentID)
		if err != nil {
			return nil, err
		}
		e.ParentID = in.ParentID
		reparented = e.Level != level
		e.Level = level
	}
	if in.Active != nil {
		e.Active = *in.Active
	}
	e.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update catalog entry")
	}
	if reparented {
		if err := s.relevelDescendants(ctx, kind, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ensureNotDescendant rejects moves that would place an entry under its own
// subtree.
func (s *Service) ensureNotDescendant(ctx context.Context, kind Kind, entryID id.CatalogID, parentID *id.CatalogID) error {
	for parentID != nil {
		if *parentID == entryID {
			return dErrors.New(dErrors.CodeValidation, "catalog entry cannot be moved under one of its own descendants")
		}
		ancestor, err := s.store.FindByID(ctx, kind, *parentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "parent %s entry not found", kind)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
		}
		parentID = ancestor.ParentID
	}
	return nil
}

// relevelDescendants rewrites descendant levels breadth-first after a move so
// every entry keeps level = parent.level + 1.
func (s *Service) relevelDescendants(ctx context.Context, kind Kind, root *Entry) error {
	queue := []*Entry{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children, err := s.store.ListChildren(ctx, kind, parent.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list catalog children")
		}
		for _, child := range children {
			if child.Level != parent.Level+1 {
				child.Level = parent.Level + 1
				child.UpdatedAt = requestcontext.Now(ctx)
				if err := s.store.Update(ctx, child); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update catalog child level")
				}
			}
			queue = append(queue, child)
		}
	}
	return nil
}

// Delete removes a leaf entry; hierarchy nodes with children are refused.
func (s *Service) Delete(ctx context.Context, kind Kind, entryID id.CatalogID) error {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionDelete, authz.ResourceCatalog); err != nil {
		return err
	}
	def, err := s.definition(kind)
	if err != nil {
		return err
	}
	if def.Hierarchical {
		children, err := s.store.CountChildren(ctx, kind, entryID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count catalog children")
		}
		if children > 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"%s entry has %d child entries; delete them first", kind, children)
		}
	}
	if err := s.store.Delete(ctx, kind, entryID); err != nil {
		return wrapEntryLookup(err, kind)
	}
	return nil
}

func (s *Service) levelFor(ctx context.Context, kind Kind, parentID *id.CatalogID) (int, error) {
	if parentID == nil {
		return 0, nil
	}
	parent, err := s.store.FindByID(ctx, kind, *parentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound, "parent %s entry not found", kind)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	return parent.Level + 1, nil
}

func wrapEntryLookup(err error, kind Kind) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s entry not found", kind)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
