// Package customfield is the governed catalog of reusable dynamic fields.
// A custom field wraps exactly one attribute and exclusively owns its
// lifecycle: deleting the field deletes the backing attribute and every
// value stored against it.
package customfield

import (
	"time"

	"custodia/internal/attribute"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// CustomField wraps an attribute with governance metadata.
//
// Invariants:
//   - AttributeID references exactly one attribute, owned by this field
//   - A field referenced by any evidence type cannot be deleted, only
//     deactivated
type CustomField struct {
	ID          id.CustomFieldID     `json:"id"`
	AttributeID id.AttributeID       `json:"attribute_id"`
	Attribute   *attribute.Attribute `json:"attribute,omitempty"`
	Description string               `json:"description,omitempty"`
	CatalogHint string               `json:"catalog_hint,omitempty"`
	Active      bool                 `json:"is_active"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// New constructs a CustomField wrapping an already-created attribute.
func New(attributeID id.AttributeID, description, catalogHint string, now time.Time) (*CustomField, error) {
	if attributeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "custom field requires a backing attribute")
	}
	return &CustomField{
		AttributeID: attributeID,
		Description: description,
		CatalogHint: catalogHint,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Deactivate retires the field for new schema attachments.
func (f *CustomField) Deactivate(now time.Time) {
	f.Active = false
	f.UpdatedAt = now
}
