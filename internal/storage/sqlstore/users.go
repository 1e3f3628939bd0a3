package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Users is the account repository.
type Users struct {
	gw *sqldb.Gateway[models.User]
}

// Create inserts a new user into the database.
func (r *Users) Create(ctx context.Context, u *models.User) error {
	if err := r.gw.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *Users) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.gw.Get(ctx, id)
}

// GetByEmail retrieves a user by their email address. It returns nil and
// no error when no user has the email.
func (r *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.gw.Select("email = ?", email).First(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}
