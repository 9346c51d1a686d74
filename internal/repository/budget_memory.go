package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

type memoryBudget struct {
	budget entities.Budget
	seq    int64 // insertion order, breaks createdAt ties
}

type memoryBudgetRepository struct {
	mu      sync.RWMutex
	budgets map[string]*memoryBudget
	seq     int64
	now     func() time.Time
}

// NewMemoryBudgetRepository creates an in-process budget store.
// It backs DATA_BACKEND=memory and the service tests.
func NewMemoryBudgetRepository() BudgetRepository {
	return &memoryBudgetRepository{
		budgets: make(map[string]*memoryBudget),
		now:     time.Now,
	}
}

func (r *memoryBudgetRepository) Create(ctx context.Context, budget *entities.Budget) (*entities.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.seq++
	stored := *budget
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.budgets[stored.ID] = &memoryBudget{budget: stored, seq: r.seq}

	out := stored
	return &out, nil
}

func (r *memoryBudgetRepository) FindByID(ctx context.Context, id string) (*entities.Budget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mb, ok := r.budgets[id]
	if !ok {
		return nil, nil
	}
	out := mb.budget
	return &out, nil
}

func (r *memoryBudgetRepository) Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mb, ok := r.budgets[id]
	if !ok {
		return nil, apperrors.NotFound("budget not found")
	}
	if patch.Name != nil {
		mb.budget.Name = *patch.Name
	}
	if patch.Amount != nil {
		mb.budget.Amount = *patch.Amount
	}
	if patch.Date != nil {
		mb.budget.Date = *patch.Date
	}
	mb.budget.UpdatedAt = r.now()

	out := mb.budget
	return &out, nil
}

func (r *memoryBudgetRepository) Delete(ctx context.Context, id string) (*entities.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mb, ok := r.budgets[id]
	if !ok {
		return nil, nil
	}
	delete(r.budgets, id)
	out := mb.budget
	return &out, nil
}

func (r *memoryBudgetRepository) Find(ctx context.Context, filter BudgetFilter, page Page) ([]*entities.Budget, int64, error) {
	r.mu.RLock()
	matched := make([]memoryBudget, 0)
	for _, mb := range r.match(filter) {
		matched = append(matched, *mb)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.budget.CreatedAt.Equal(b.budget.CreatedAt) {
			return a.budget.CreatedAt.After(b.budget.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	start, end := int64(0), total
	if page.Limit > 0 {
		start = min(max(page.Skip, 0), total)
		end = min(start+page.Limit, total)
	}

	budgets := make([]*entities.Budget, 0, end-start)
	for i := range matched[start:end] {
		budgets = append(budgets, &matched[start+int64(i)].budget)
	}
	return budgets, total, nil
}

func (r *memoryBudgetRepository) SumAmount(ctx context.Context, filter BudgetFilter) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, mb := range r.match(filter) {
		total += mb.budget.Amount
	}
	return total, nil
}

func (r *memoryBudgetRepository) GroupSumAmount(ctx context.Context, filter BudgetFilter, groupBy GroupBy) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sums := make(map[string]float64)
	for _, mb := range r.match(filter) {
		sums[groupBy.Key(mb.budget.Date)] += mb.budget.Amount
	}
	return sums, nil
}

// match must be called with r.mu held
func (r *memoryBudgetRepository) match(filter BudgetFilter) []*memoryBudget {
	var matched []*memoryBudget
	for _, mb := range r.budgets {
		if filter.Matches(&mb.budget) {
			matched = append(matched, mb)
		}
	}
	return matched
}
