package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
	"budgetly-be/internal/jwt"
	"budgetly-be/internal/logger"
	"budgetly-be/internal/models"
	"budgetly-be/internal/repository"
)

const invalidCredentials = "invalid email or password"

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *jwt.JWTService
	log        *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, jwtService *jwt.JWTService, log *logger.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		log:        log.WithComponent(logger.ComponentAuth),
	}
}

// Register creates a new user account and logs it in
func (s *authService) Register(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NotFound("user already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var limit float64
	if req.BudgetLimit != nil {
		limit = *req.BudgetLimit
	}
	user, err := s.userRepo.Create(ctx, &entities.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hashedPassword),
		BudgetLimit:  limit,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// lost a race with a concurrent signup
		return nil, apperrors.NotFound("user already exists")
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", logger.FieldUserID, user.ID)
	return s.issue(user)
}

// Login authenticates a user and returns a fresh token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	return s.issue(user)
}

func (s *authService) issue(user *entities.User) (*models.AuthResponse, error) {
	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.AuthResponse{Token: token, UserID: user.ID}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
