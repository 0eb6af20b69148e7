package attribute

import (
	"regexp"
	"slices"
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Datatype enumerates the storage/validation types an attribute can carry.
type Datatype string

const (
	DatatypeText    Datatype = "text"
	DatatypeNumber  Datatype = "number"
	DatatypeDate    Datatype = "date"
	DatatypeBoolean Datatype = "boolean"
	DatatypeEnum    Datatype = "enum"
)

// ParseDatatype validates and returns a Datatype.
func ParseDatatype(s string) (Datatype, error) {
	switch Datatype(s) {
	case DatatypeText, DatatypeNumber, DatatypeDate, DatatypeBoolean, DatatypeEnum:
		return Datatype(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown datatype %q", s)
}

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Attribute is a named, typed vocabulary entry from which custom fields are
// built. The slug is the stable key clients use in dynamic-value payloads.
//
// Invariants:
//   - Slug is globally unique and immutable after creation
//   - Datatype is immutable once any value references the attribute
//   - Enum attributes carry at least one choice; other datatypes carry none
//   - Attributes referenced by stored values are deactivated, never deleted,
//     except through the owning CustomField's cascade
type Attribute struct {
	ID        id.AttributeID `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Datatype  Datatype       `json:"datatype"`
	Choices   []string       `json:"choices,omitempty"`
	Active    bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New validates and constructs an Attribute.
func New(name, slug string, datatype Datatype, choices []string, now time.Time) (*Attribute, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "attribute name cannot be empty")
	}
	if !slugPattern.MatchString(slug) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "attribute slug %q must be lowercase letters, digits and underscores", slug)
	}
	switch datatype {
	case DatatypeEnum:
		if len(choices) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "enum attribute requires at least one choice")
		}
	case DatatypeText, DatatypeNumber, DatatypeDate, DatatypeBoolean:
		if len(choices) > 0 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "%s attribute cannot carry choices", datatype)
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown datatype %q", datatype)
	}
	return &Attribute{
		Name:      name,
		Slug:      slug,
		Datatype:  datatype,
		Choices:   slices.Clone(choices),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasChoice reports whether v is one of an enum attribute's choices.
func (a *Attribute) HasChoice(v string) bool {
	return slices.Contains(a.Choices, v)
}

// Deactivate marks the attribute unusable for new values without touching
// values already stored against it.
func (a *Attribute) Deactivate(now time.Time) {
	a.Active = false
	a.UpdatedAt = now
}
