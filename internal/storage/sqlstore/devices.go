package sqlstore

import (
	"context"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Devices is the device registration repository.
type Devices struct {
	gw *sqldb.Gateway[models.UserDevice]
}

// Register records d under its user. Registering a known device again
// refreshes its name and platform; a device id belonging to another user
// is rejected.
func (r *Devices) Register(ctx context.Context, d *models.UserDevice) error {
	existing, err := r.gw.Get(ctx, d.ID)
	if storage.IsNotFound(err) {
		return r.gw.Create(ctx, d)
	}
	if err != nil {
		return err
	}
	if existing.UserID != d.UserID {
		return storage.NewValidationError("device_id", "device %s is registered to another user", d.ID)
	}
	d.CreatedAt = existing.CreatedAt
	return r.gw.Update(ctx, d)
}

// Get returns the device with the given id.
func (r *Devices) Get(ctx context.Context, id string) (*models.UserDevice, error) {
	return r.gw.Get(ctx, id)
}

// ListByUser returns the devices of userID in registration order.
func (r *Devices) ListByUser(ctx context.Context, userID string) ([]*models.UserDevice, error) {
	return r.gw.Select("user_id = ? ORDER BY created_at, id", userID).All(ctx)
}
