package evidencetype

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists evidence types and their schema associations.
// Implementations return sentinel errors: ErrNotFound for missing rows,
// ErrConflict for alias collisions and duplicate association pairs.
type Store interface {
	Create(ctx context.Context, t *EvidenceType) error
	FindByID(ctx context.Context, typeID id.EvidenceTypeID) (*EvidenceType, error)
	FindByAlias(ctx context.Context, alias string) (*EvidenceType, error)
	List(ctx context.Context, activeOnly bool) ([]*EvidenceType, error)
	Update(ctx context.Context, t *EvidenceType) error
	Delete(ctx context.Context, typeID id.EvidenceTypeID) error
	CountChildren(ctx context.Context, typeID id.EvidenceTypeID) (int, error)
	ListChildren(ctx context.Context, typeID id.EvidenceTypeID) ([]*EvidenceType, error)

	AttachCustomField(ctx context.Context, link *TypeCustomField) error
	DetachCustomField(ctx context.Context, typeID id.EvidenceTypeID, fieldID id.CustomFieldID) error
	ListCustomFields(ctx context.Context, typeID id.EvidenceTypeID) ([]*TypeCustomField, error)
	// CountCustomFieldRefs counts associations across all types; the custom
	// field catalog uses it to refuse deletes of referenced fields.
	CountCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) (int, error)
	// ListCustomFieldRefs returns the types referencing a field so their
	// cached schemas can be dropped when the field changes.
	ListCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) ([]id.EvidenceTypeID, error)

	AttachQualityControl(ctx context.Context, link *TypeQualityControl) error
	DetachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) error
	ListQualityControls(ctx context.Context, typeID id.EvidenceTypeID) ([]*TypeQualityControl, error)
}
