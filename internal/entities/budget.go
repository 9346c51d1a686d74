package entities

import "time"

// Budget represents a single dated expense entry owned by a user
type Budget struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`   // when the expense happened, not when it was recorded
	UserID    string    `json:"userId"` // owner, never reassigned
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BudgetPatch holds the fields an update may change. Nil fields are left as they are.
type BudgetPatch struct {
	Name   *string
	Amount *float64
	Date   *time.Time
}

// IsEmpty reports whether the patch changes nothing
func (p BudgetPatch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Date == nil
}
