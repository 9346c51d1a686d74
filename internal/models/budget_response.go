package models

import "budgetly-be/internal/entities"

// CreateBudgetResponse is the current-month summary returned after recording an entry.
// The totals are only filled in when the new entry belongs to the current month.
type CreateBudgetResponse struct {
	TotalBudgetThisMonth float64          `json:"totalBudgetThisMonth"`
	IsCurrentMonth       bool             `json:"isCurrentMonth"`
	BudgetLimit          *float64         `json:"budgetLimit,omitempty"`
	Budget               *entities.Budget `json:"budget"`
}

// LimitResponse compares this month's spend with the user's limit
type LimitResponse struct {
	TotalBudgetThisMonth float64  `json:"totalBudgetThisMonth"`
	BudgetLimit          *float64 `json:"budgetLimit,omitempty"`
}

// BudgetListResponse is one page of a user's entries
type BudgetListResponse struct {
	Budgets      []*entities.Budget `json:"budgets"`
	TotalBudgets int64              `json:"totalBudgets"`
	CurrentPage  int                `json:"currentPage"`
}

// Series is a chart series; Categories and Data are always the same length
type Series struct {
	Categories []string  `json:"categories"`
	Data       []float64 `json:"data"`
}

// AnalyticsResponse holds the three spending series used for charting
type AnalyticsResponse struct {
	LastMonth    Series   `json:"lastMonth"`
	Last6Months  Series   `json:"last6Months"`
	Last12Months Series   `json:"last12Months"`
	BudgetLimit  *float64 `json:"budgetLimit,omitempty"`
}
