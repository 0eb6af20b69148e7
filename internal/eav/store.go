package eav

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists dynamic attribute values.
type Store interface {
	// Upsert writes the value, replacing any previous value for the same
	// (evidence, attribute) pair.
	Upsert(ctx context.Context, v *Value) error
	// ListByEvidence returns every value explicitly set for the evidence.
	ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*Value, error)
	// DeleteByEvidence removes all values of an evidence.
	DeleteByEvidence(ctx context.Context, evidenceID id.EvidenceID) error
	// DeleteByAttribute removes every stored value of an attribute across all
	// evidences; the custom-field delete cascade is the only caller.
	DeleteByAttribute(ctx context.Context, attrID id.AttributeID) error
}
