// Package catalog implements the shared reference catalogs (divisions,
// municipalities, institutions, suppliers, departments, ...) as one
// parametrized service instead of a copy per catalog.
package catalog

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Kind names one catalog. Each kind gets its own keyspace; hierarchical
// kinds additionally carry parent/level.
type Kind string

const (
	KindDivision     Kind = "division"
	KindMunicipality Kind = "municipality"
	KindInstitution  Kind = "institution"
	KindSupplier     Kind = "supplier"
	KindDepartment   Kind = "department"
	KindEntity       Kind = "entity"
	KindStateOrg     Kind = "state_org"
)

// Definition declares how a catalog behaves.
type Definition struct {
	Kind         Kind
	Hierarchical bool
}

// Definitions lists every catalog the service manages.
var Definitions = []Definition{
	{Kind: KindDivision},
	{Kind: KindMunicipality},
	{Kind: KindInstitution},
	{Kind: KindSupplier},
	{Kind: KindDepartment, Hierarchical: true},
	{Kind: KindEntity, Hierarchical: true},
	{Kind: KindStateOrg, Hierarchical: true},
}

// Entry is one row of any catalog. Level is 0 for flat catalogs and for
// hierarchy roots; it is always recomputed from the parent.
type Entry struct {
	ID          id.CatalogID  `json:"id"`
	Kind        Kind          `json:"kind"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	ParentID    *id.CatalogID `json:"parent_id,omitempty"`
	Level       int           `json:"level"`
	Active      bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewEntry validates and constructs a catalog entry.
func NewEntry(kind Kind, name, description string, parentID *id.CatalogID, now time.Time) (*Entry, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "catalog entry name cannot be empty")
	}
	return &Entry{
		Kind:        kind,
		Name:        name,
		Description: description,
		ParentID:    parentID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
