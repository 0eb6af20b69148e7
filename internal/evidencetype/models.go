// Package evidencetype manages evidence categories and their schemas: which
// custom fields an evidence of a given type carries and which quality
// controls apply to it.
package evidencetype

import (
	"time"

	"custodia/internal/customfield"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// EvidenceType is a named evidence category inside one group. Types form a
// tree through ParentID; Level is always recomputed server-side as
// parent.Level+1 and never trusted from input.
type EvidenceType struct {
	ID                 id.EvidenceTypeID  `json:"id"`
	Name               string             `json:"name"`
	Alias              string             `json:"alias"`
	Level              int                `json:"level"`
	ParentID           *id.EvidenceTypeID `json:"parent_id,omitempty"`
	GroupID            id.EvidenceGroupID `json:"group_id"`
	AttachmentRequired bool               `json:"attachment_required"`
	SignatureRequired  bool               `json:"signature_required"`
	AuthRequired       bool               `json:"auth_required"`
	Active             bool               `json:"is_active"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// TypeCustomField links one custom field to one evidence type with
// per-association overrides. The (type, custom field) pair is unique.
type TypeCustomField struct {
	TypeID        id.EvidenceTypeID `json:"type_id"`
	CustomFieldID id.CustomFieldID  `json:"custom_field_id"`
	Mandatory     bool              `json:"mandatory"`
	GroupLabel    string            `json:"group_label"`
	Active        bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
}

// DefaultGroupLabel groups schema fields that declare no explicit UI section.
const DefaultGroupLabel = "General"

// TypeQualityControl marks a quality control as applicable to a type.
// The (type, quality control) pair is unique.
type TypeQualityControl struct {
	TypeID           id.EvidenceTypeID   `json:"type_id"`
	QualityControlID id.QualityControlID `json:"quality_control_id"`
	CreatedAt        time.Time           `json:"created_at"`
}

// SchemaField is one entry of a type's resolved schema, ready for form
// rendering and mandatory-field validation.
type SchemaField struct {
	CustomField *customfield.CustomField `json:"custom_field"`
	Mandatory   bool                     `json:"mandatory"`
	GroupLabel  string                   `json:"group_label"`
	Active      bool                     `json:"is_active"`
}

// NewEvidenceType validates and constructs a type. Level starts at 0 and is
// fixed up by the service once the parent is resolved.
func NewEvidenceType(name, alias string, groupID id.EvidenceGroupID, parentID *id.EvidenceTypeID,
	attachmentRequired, signatureRequired, authRequired bool, now time.Time) (*EvidenceType, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "type name cannot be empty")
	}
	if alias == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "type alias cannot be empty")
	}
	if groupID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "type requires a group")
	}
	return &EvidenceType{
		Name:               name,
		Alias:              alias,
		ParentID:           parentID,
		GroupID:            groupID,
		AttachmentRequired: attachmentRequired,
		SignatureRequired:  signatureRequired,
		AuthRequired:       authRequired,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
