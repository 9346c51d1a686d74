package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

const budgetColumns = "id, name, amount, date, user_id, created_at, updated_at"

type postgresBudgetRepository struct {
	db *sql.DB
}

// NewPostgresBudgetRepository creates a budget repository on PostgreSQL
func NewPostgresBudgetRepository(db *sql.DB) BudgetRepository {
	return &postgresBudgetRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*entities.Budget, error) {
	var b entities.Budget
	if err := row.Scan(&b.ID, &b.Name, &b.Amount, &b.Date, &b.UserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Date = b.Date.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// Create inserts a new entry
func (r *postgresBudgetRepository) Create(ctx context.Context, budget *entities.Budget) (*entities.Budget, error) {
	if _, err := uuid.Parse(budget.UserID); err != nil {
		return nil, apperrors.InvalidInput("invalid user id", err)
	}

	query := `
		INSERT INTO budgets (id, name, amount, date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + budgetColumns

	now := time.Now().UTC()
	created, err := scanBudget(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), budget.Name, budget.Amount, budget.Date.UTC(), budget.UserID, now))
	if err != nil {
		return nil, apperrors.Storage("create budget", err)
	}
	return created, nil
}

// FindByID finds an entry by id; malformed ids are treated as absent
func (r *postgresBudgetRepository) FindByID(ctx context.Context, id string) (*entities.Budget, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("find budget", err)
	}
	return b, nil
}

// Update applies the patch and returns the updated entry
func (r *postgresBudgetRepository) Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("budget not found")
	}

	args := []any{id, time.Now().UTC()}
	sets := []string{"updated_at = $2"}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Amount != nil {
		args = append(args, *patch.Amount)
		sets = append(sets, fmt.Sprintf("amount = $%d", len(args)))
	}
	if patch.Date != nil {
		args = append(args, patch.Date.UTC())
		sets = append(sets, fmt.Sprintf("date = $%d", len(args)))
	}

	query := `UPDATE budgets SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + budgetColumns
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("budget not found")
	}
	if err != nil {
		return nil, apperrors.Storage("update budget", err)
	}
	return b, nil
}

// Delete removes an entry and returns it, or nil when there was nothing to remove
func (r *postgresBudgetRepository) Delete(ctx context.Context, id string) (*entities.Budget, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `DELETE FROM budgets WHERE id = $1 RETURNING ` + budgetColumns
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("delete budget", err)
	}
	return b, nil
}

// Find returns one page of matching entries, newest first, plus the total count
func (r *postgresBudgetRepository) Find(ctx context.Context, filter BudgetFilter, page Page) ([]*entities.Budget, int64, error) {
	where, args, err := budgetWhere(filter)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Storage("count budgets", err)
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	if page.Limit > 0 {
		args = append(args, page.Limit, max(page.Skip, 0))
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Storage("list budgets", err)
	}
	defer rows.Close()

	budgets := make([]*entities.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, 0, apperrors.Storage("scan budget", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Storage("list budgets", err)
	}
	return budgets, total, nil
}

// SumAmount sums the amount of every matching entry
func (r *postgresBudgetRepository) SumAmount(ctx context.Context, filter BudgetFilter) (float64, error) {
	where, args, err := budgetWhere(filter)
	if err != nil {
		return 0, err
	}

	var total float64
	query := `SELECT COALESCE(SUM(amount), 0) FROM budgets WHERE ` + where
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.Storage("sum budgets", err)
	}
	return total, nil
}

// GroupSumAmount sums amounts per calendar bucket, labelled the same way as
// calendar.DayLabel and calendar.MonthLabel
func (r *postgresBudgetRepository) GroupSumAmount(ctx context.Context, filter BudgetFilter, groupBy GroupBy) (map[string]float64, error) {
	where, args, err := budgetWhere(filter)
	if err != nil {
		return nil, err
	}

	pattern := "FMMM/FMDD"
	if groupBy.Bucket == BucketMonth {
		pattern = "FMMM/YYYY"
	}
	args = append(args, groupBy.zoneName())
	label := fmt.Sprintf("to_char(date AT TIME ZONE $%d, '%s')", len(args), pattern)

	query := `SELECT ` + label + `, SUM(amount) FROM budgets WHERE ` + where + ` GROUP BY 1`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("group budgets", err)
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var key string
		var total float64
		if err := rows.Scan(&key, &total); err != nil {
			return nil, apperrors.Storage("scan budget group", err)
		}
		sums[key] = total
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("group budgets", err)
	}
	return sums, nil
}

func budgetWhere(filter BudgetFilter) (string, []any, error) {
	if _, err := uuid.Parse(filter.UserID); err != nil {
		return "", nil, apperrors.InvalidInput("invalid user id", err)
	}

	args := []any{filter.UserID}
	conds := []string{"user_id = $1"}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.Day != "" {
		args = append(args, filter.zoneName(), filter.Day)
		conds = append(conds, fmt.Sprintf("to_char(date AT TIME ZONE $%d, 'DD-MM-YYYY') = $%d", len(args)-1, len(args)))
	}
	return strings.Join(conds, " AND "), args, nil
}
