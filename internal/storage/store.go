// Package storage defines the repository contracts of receiptbook and the
// errors every storage backend reports.
package storage

import (
	"context"

	"github.com/mmynk/receiptbook/internal/models"
)

// BudgetRepository persists monthly budgets.
type BudgetRepository interface {
	// Store creates the budget when its id is unknown and otherwise
	// updates it under a version check. On success b carries the stored
	// version and modification time.
	Store(ctx context.Context, b *models.Budget) error

	// Get returns the budget of userID with the given id.
	Get(ctx context.Context, userID, id string) (*models.Budget, error)

	// List returns every budget of userID ordered by month.
	List(ctx context.Context, userID string) ([]*models.Budget, error)

	// Delete removes the budget if version is still current.
	Delete(ctx context.Context, userID, id string, version int64) error
}

// CategoryRepository persists spending categories.
type CategoryRepository interface {
	Store(ctx context.Context, c *models.Category) error
	Get(ctx context.Context, userID, id string) (*models.Category, error)

	// List returns the live categories of userID ordered by name.
	List(ctx context.Context, userID string) ([]*models.Category, error)

	// SoftDelete tombstones the category if version is still current.
	SoftDelete(ctx context.Context, userID, id string, version int64) error

	// SeedDefaults inserts the default categories userID does not have yet
	// and returns how many were added.
	SeedDefaults(ctx context.Context, userID string) (int64, error)
}

// ReceiptRepository persists receipts together with their items.
type ReceiptRepository interface {
	// Store writes the receipt under a version check and reconciles its
	// items against r.Items.
	Store(ctx context.Context, r *models.Receipt) error

	// Get returns the receipt with its items in sort order.
	Get(ctx context.Context, userID, id string) (*models.Receipt, error)

	// List returns the live receipts of userID, newest date first.
	List(ctx context.Context, userID string) ([]*models.Receipt, error)

	SoftDelete(ctx context.Context, userID, id string, version int64) error
}

// UserRepository persists registered accounts.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns nil and no error when no user has the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// DeviceRepository persists devices registered under a user.
type DeviceRepository interface {
	Register(ctx context.Context, d *models.UserDevice) error
	Get(ctx context.Context, id string) (*models.UserDevice, error)
	ListByUser(ctx context.Context, userID string) ([]*models.UserDevice, error)
}
