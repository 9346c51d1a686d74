package service

import (
	"context"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
	"budgetly-be/internal/models"
	"budgetly-be/internal/repository"
)

// UserService defines the interface for account operations
type UserService interface {
	Profile(ctx context.Context, id string) (*entities.User, error)
	Remove(ctx context.Context, email string) (*models.MessageResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Profile returns the user with the given id
func (s *userService) Profile(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return user, nil
}

// Remove deletes the account registered under email. Entries the user
// recorded are left in place.
func (s *userService) Remove(ctx context.Context, email string) (*models.MessageResponse, error) {
	removed, err := s.userRepo.DeleteByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, apperrors.NotFound("user not found")
	}
	return &models.MessageResponse{Message: "User Deleted Successfully"}, nil
}
