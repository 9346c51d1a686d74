package models

import "time"

// CreateBudgetRequest represents the request body for recording an expense
type CreateBudgetRequest struct {
	Name   string   `json:"name" binding:"required"`
	Amount *float64 `json:"amount" binding:"required,gte=0"`
	Date   string   `json:"date" binding:"required"` // RFC 3339 or YYYY-MM-DD
}

// UpdateBudgetRequest represents the request body for a partial update
type UpdateBudgetRequest struct {
	Name   *string  `json:"name,omitempty" binding:"omitempty,min=1"`
	Amount *float64 `json:"amount,omitempty" binding:"omitempty,gte=0"`
	Date   *string  `json:"date,omitempty"`
}

// ListBudgetsQuery represents the query string of the listing endpoint
type ListBudgetsQuery struct {
	Limit    int    `form:"limit" binding:"gte=0"` // 0 means no pagination
	Page     int    `form:"page" binding:"gte=0"`  // 1-based
	Date     string `form:"date"`                  // DD-MM-YYYY
	TimeZone string `form:"timeZone"`
}

// AnalyticsQuery represents the query string of the analytics endpoint
type AnalyticsQuery struct {
	TimeZone string `form:"timeZone"`
}

// BudgetInput is a validated new entry handed to the budget service
type BudgetInput struct {
	Name   string
	Amount float64
	Date   time.Time
}
