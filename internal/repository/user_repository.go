package repository

//go:generate mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks

import (
	"context"
	"errors"

	"budgetly-be/internal/entities"
)

// ErrDuplicateEmail is wrapped into the storage error returned by Create
// when the email is already taken
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user database operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	// FindByEmail returns nil, nil when no user has that email
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	// FindByID returns nil, nil when the user does not exist
	FindByID(ctx context.Context, id string) (*entities.User, error)
	// DeleteByEmail reports whether a user was removed
	DeleteByEmail(ctx context.Context, email string) (bool, error)
}
