package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

// NewMemoryUserRepository creates an in-process user directory
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]entities.User)}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, apperrors.Storage("create user", ErrDuplicateEmail)
		}
	}

	now := time.Now()
	stored := *user
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.users[stored.ID] = stored

	return &stored, nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryUserRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if u.Email == email {
			delete(r.users, id)
			return true, nil
		}
	}
	return false, nil
}
