package models

// Budget is a user's spending limit for one month.
type Budget struct {
	// ID is the unique identifier for the budget.
	ID string `json:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id"`

	// Month is the budget month in YYYY-MM format.
	Month string `json:"month"`

	// Amount is the spending limit for the month.
	Amount float64 `json:"amount"`

	// Version is the optimistic concurrency token.
	Version int64 `json:"version"`

	// UpdatedAt is the last modification time in unix milliseconds.
	UpdatedAt int64 `json:"updated_at"`
}
