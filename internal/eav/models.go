// Package eav stores dynamic attribute values for evidences: one row per
// (evidence, attribute) with a typed column per datatype. Evidence-type
// schemas change at runtime, so values are kept generically instead of in
// per-type tables; lookups pay a join in exchange for migration-free schema
// edits.
package eav

import (
	"time"

	"custodia/internal/attribute"
	id "custodia/pkg/domain"
)

// Value is a single stored datum. Exactly one of the typed columns is set,
// selected by Datatype. Slug is denormalized from the attribute so value
// enumeration does not need a registry lookup per row.
type Value struct {
	EvidenceID  id.EvidenceID
	AttributeID id.AttributeID
	Slug        string
	Datatype    attribute.Datatype

	Text   *string
	Number *float64
	Date   *time.Time
	Bool   *bool

	UpdatedAt time.Time
}

// Native returns the stored value as its natural Go type: string, float64,
// time.Time or bool. Enum values surface as strings.
func (v *Value) Native() any {
	switch v.Datatype {
	case attribute.DatatypeNumber:
		if v.Number != nil {
			return *v.Number
		}
	case attribute.DatatypeDate:
		if v.Date != nil {
			return *v.Date
		}
	case attribute.DatatypeBoolean:
		if v.Bool != nil {
			return *v.Bool
		}
	default:
		if v.Text != nil {
			return *v.Text
		}
	}
	return nil
}
