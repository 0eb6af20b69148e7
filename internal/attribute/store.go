package attribute

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists the attribute vocabulary. Implementations return sentinel
// errors (pkg/platform/sentinel) for infrastructure facts: ErrNotFound for
// missing rows, ErrConflict for slug collisions.
type Store interface {
	// Create assigns the attribute's ID on success.
	Create(ctx context.Context, attr *Attribute) error
	FindByID(ctx context.Context, attrID id.AttributeID) (*Attribute, error)
	FindBySlug(ctx context.Context, slug string) (*Attribute, error)
	List(ctx context.Context, activeOnly bool) ([]*Attribute, error)
	Update(ctx context.Context, attr *Attribute) error
	// Delete removes the attribute row. Only the custom-field cascade calls
	// this; registry-level removal is always a logical deactivation.
	Delete(ctx context.Context, attrID id.AttributeID) error
}
