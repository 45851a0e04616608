package services

import (
	"context"

	"github.com/charismamove/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]types.User, error)
	Count(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Get returns the user id on behalf of principal, who may only read their
// own account.
func (s *UserService) Get(ctx context.Context, principal types.Principal, id int) (types.User, error) {
	if principal.UserID != id {
		return types.User{}, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies update to the principal's own account.
func (s *UserService) UpdateProfile(ctx context.Context, principal types.Principal, id int, update types.ProfileUpdate) (types.User, error) {
	if principal.UserID != id {
		return types.User{}, ErrForbidden
	}
	return s.repo.UpdateProfile(ctx, id, update)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Delete removes an account. Accounts owning bookings or announcements are
// kept and store.ErrReferenced is returned.
func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
