package user

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/authz"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service manages the user directory.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, name, email string, divisionID id.DivisionID) (*User, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceUser); err != nil {
		return nil, err
	}
	u, err := New(name, email, divisionID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "user email %q already exists", email)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*User, error) {
	users, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// Deactivate retires a user; existing records keep referencing them.
func (s *Service) Deactivate(ctx context.Context, userID id.UserID) (*User, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceUser); err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Active {
		u.Active = false
		u.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Update(ctx, u); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
		}
	}
	return u, nil
}
