package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

const (
	userColumns       = "id, email, first_name, last_name, password_hash, budget_limit, created_at, updated_at"
	pqUniqueViolation   = "23505"
)

type postgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a user repository on PostgreSQL
func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.BudgetLimit, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user
func (r *postgresUserRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, budget_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), user.Email, user.FirstName, user.LastName, user.PasswordHash, user.BudgetLimit, time.Now().UTC()))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, apperrors.Storage("create user", fmt.Errorf("%w: %v", ErrDuplicateEmail, err))
		}
		return nil, apperrors.Storage("create user", err)
	}
	return created, nil
}

// FindByEmail finds a user by email
func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID finds a user by id; malformed ids are treated as absent
func (r *postgresUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// DeleteByEmail removes the user with the given email
func (r *postgresUserRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return false, apperrors.Storage("delete user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Storage("delete user", err)
	}
	return n > 0, nil
}

func (r *postgresUserRepository) findOne(ctx context.Context, query string, arg any) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("find user", err)
	}
	return u, nil
}
