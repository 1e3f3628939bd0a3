package models

// Category is a user-defined spending category.
type Category struct {
	// ID is the unique identifier for the category.
	ID string `json:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id"`

	// Name is the display name (e.g., "Supermarket").
	Name string `json:"name"`

	// Color is a hex color such as "#4caf50".
	Color string `json:"color"`

	// Icon is the client icon identifier.
	Icon string `json:"icon"`

	// Version is the optimistic concurrency token.
	Version int64 `json:"version"`

	// IsDeleted is the tombstone. Deleted categories stay in storage so the
	// deletion reaches every device through the change feed.
	IsDeleted bool `json:"is_deleted"`

	// UpdatedAt is the last modification time in unix milliseconds.
	UpdatedAt int64 `json:"updated_at"`
}
