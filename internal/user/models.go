// Package user is the directory of account holders referenced by evidences,
// authorizations, signatures and notifications. Authentication happens
// upstream; this module only resolves identities and division membership.
package user

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type User struct {
	ID         id.UserID     `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	DivisionID id.DivisionID `json:"division_id"`
	Active     bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func New(name, email string, divisionID id.DivisionID, now time.Time) (*User, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user name cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user email cannot be empty")
	}
	return &User{
		Name:       name,
		Email:      email,
		DivisionID: divisionID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
