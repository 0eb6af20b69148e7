package catalog

import (
	"context"

	id "custodia/pkg/domain"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	ActiveOnly bool
	// NameFilter matches entries whose name contains the value,
	// case-insensitively. Empty means no name filtering.
	NameFilter string
}

// Store persists catalog entries across all kinds.
// Implementations return ErrNotFound for missing entries and ErrConflict
// for duplicate (kind, name) pairs.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, kind Kind, entryID id.CatalogID) (*Entry, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, kind Kind, entryID id.CatalogID) error
	CountChildren(ctx context.Context, kind Kind, entryID id.CatalogID) (int, error)
	ListChildren(ctx context.Context, kind Kind, entryID id.CatalogID) ([]*Entry, error)
}
