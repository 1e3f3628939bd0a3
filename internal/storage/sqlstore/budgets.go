package sqlstore

import (
	"context"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Budgets is the budget repository.
type Budgets struct {
	gw *sqldb.Gateway[models.Budget]
}

// Store creates or updates b. A budget id owned by another user is
// reported as not found.
func (r *Budgets) Store(ctx context.Context, b *models.Budget) error {
	existing, err := r.gw.Get(ctx, b.ID)
	if storage.IsNotFound(err) {
		return r.gw.Create(ctx, b)
	}
	if err != nil {
		return err
	}
	if existing.UserID != b.UserID {
		return &storage.NotFoundError{Table: budgetMapping.Table(), ID: b.ID}
	}
	return r.gw.Update(ctx, b)
}

// Get returns the budget of userID with the given id.
func (r *Budgets) Get(ctx context.Context, userID, id string) (*models.Budget, error) {
	b, err := r.gw.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, &storage.NotFoundError{Table: budgetMapping.Table(), ID: id}
	}
	return b, nil
}

// List returns every budget of userID ordered by month.
func (r *Budgets) List(ctx context.Context, userID string) ([]*models.Budget, error) {
	return r.gw.Select("user_id = ? ORDER BY month, id", userID).All(ctx)
}

// Delete physically removes the budget if version is still current.
func (r *Budgets) Delete(ctx context.Context, userID, id string, version int64) error {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}
	return r.gw.DeleteVersion(ctx, &models.Budget{ID: id, UserID: userID, Version: version})
}
