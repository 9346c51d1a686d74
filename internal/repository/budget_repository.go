package repository

//go:generate mockgen -source=budget_repository.go -destination=mocks/mock_budget_repository.go -package=mocks

import (
	"context"
	"time"

	"budgetly-be/internal/calendar"
	"budgetly-be/internal/entities"
)

// BudgetRepository defines the interface for expense entry storage.
// Implementations do the filtering and grouping natively so the budget
// service never touches store-specific query expressions.
type BudgetRepository interface {
	Create(ctx context.Context, budget *entities.Budget) (*entities.Budget, error)
	// FindByID returns nil, nil when the entry does not exist
	FindByID(ctx context.Context, id string) (*entities.Budget, error)
	// Update returns a NotFound error when the entry does not exist
	Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error)
	// Delete returns the removed entry, or nil, nil when there was none
	Delete(ctx context.Context, id string) (*entities.Budget, error)
	// Find returns one page of matching entries, newest first, and the total match count
	Find(ctx context.Context, filter BudgetFilter, page Page) ([]*entities.Budget, int64, error)
	SumAmount(ctx context.Context, filter BudgetFilter) (float64, error)
	GroupSumAmount(ctx context.Context, filter BudgetFilter, groupBy GroupBy) (map[string]float64, error)
}

// BudgetFilter selects a user's entries
type BudgetFilter struct {
	UserID string
	From   time.Time // inclusive lower bound on Date, zero means unbounded
	To     time.Time // inclusive upper bound on Date, zero means unbounded

	// Day keeps only entries whose Date, rendered as DD-MM-YYYY in
	// Location, equals it exactly. Empty means no day filter.
	Day      string
	Location *time.Location
}

// Matches reports whether b passes the filter
func (f BudgetFilter) Matches(b *entities.Budget) bool {
	if b.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && b.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && b.Date.After(f.To) {
		return false
	}
	if f.Day != "" && calendar.DayStamp(b.Date.In(f.zone())) != f.Day {
		return false
	}
	return true
}

func (f BudgetFilter) zone() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f BudgetFilter) zoneName() string {
	return f.zone().String()
}

// Page is an offset window over a sorted result. Limit 0 returns everything.
type Page struct {
	Skip  int64
	Limit int64
}

// Bucket selects the calendar unit entries are grouped by
type Bucket int

const (
	// BucketDay groups by month and day of month, labelled "M/D"
	BucketDay Bucket = iota + 1
	// BucketMonth groups by month and year, labelled "M/YYYY"
	BucketMonth
)

// GroupBy describes a grouped sum: the bucket and the zone the entry
// date is rendered in before taking its calendar fields
type GroupBy struct {
	Bucket   Bucket
	Location *time.Location
}

// Key returns the bucket label for an entry dated t
func (g GroupBy) Key(t time.Time) string {
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if g.Bucket == BucketMonth {
		return calendar.MonthLabel(t)
	}
	return calendar.DayLabel(t)
}

func (g GroupBy) zoneName() string {
	if g.Location == nil {
		return "UTC"
	}
	return g.Location.String()
}
