package customfield

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists custom fields. Attribute resolution (the Attribute pointer
// on reads) is done by the service, not the store.
type Store interface {
	Create(ctx context.Context, f *CustomField) error
	FindByID(ctx context.Context, fieldID id.CustomFieldID) (*CustomField, error)
	List(ctx context.Context, activeOnly bool) ([]*CustomField, error)
	Update(ctx context.Context, f *CustomField) error
	Delete(ctx context.Context, fieldID id.CustomFieldID) error
}
