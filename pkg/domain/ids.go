// Package domain holds typed identifier primitives shared across modules.
//
// Catalog and workflow entities use int64 surrogate keys assigned by the
// store. Typed wrappers keep foreign keys from being mixed up at call sites
// (an EvidenceTypeID is not assignable to an EvidenceStatusID).
package domain

// Catalog vocabulary.
type (
	AttributeID      int64
	CustomFieldID    int64
	QualityControlID int64
)

// Workflow catalogs.
type (
	EvidenceGroupID  int64
	EvidenceStageID  int64
	EvidenceStatusID int64
	EvidenceTypeID   int64
)

// Lifecycle entities.
type (
	EvidenceID     int64
	AuthID         int64
	SignatureID    int64
	FindingID      int64
	CommentID      int64
	NotificationID int64
)

// Collaborator references resolved through external services.
type (
	UserID     int64
	DivisionID int64
	FileID     int64
	CatalogID  int64
)

func (id AttributeID) IsNil() bool      { return id == 0 }
func (id CustomFieldID) IsNil() bool    { return id == 0 }
func (id QualityControlID) IsNil() bool { return id == 0 }
func (id EvidenceGroupID) IsNil() bool  { return id == 0 }
func (id EvidenceStageID) IsNil() bool  { return id == 0 }
func (id EvidenceStatusID) IsNil() bool { return id == 0 }
func (id EvidenceTypeID) IsNil() bool   { return id == 0 }
func (id EvidenceID) IsNil() bool       { return id == 0 }
func (id UserID) IsNil() bool           { return id == 0 }
func (id DivisionID) IsNil() bool       { return id == 0 }
func (id FileID) IsNil() bool           { return id == 0 }
