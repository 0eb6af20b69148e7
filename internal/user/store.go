package user

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists directory users. Implementations return ErrNotFound for
// missing users and ErrConflict for duplicate emails.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	List(ctx context.Context, activeOnly bool) ([]*User, error)
	Update(ctx context.Context, u *User) error
}
