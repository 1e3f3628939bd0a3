// Package service implements the receiptbook use cases on top of the
// storage repositories. Every call names its caller explicitly; nothing is
// read from ambient state.
package service

import (
	"context"
	"fmt"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/changefeed"
)

// Identity is the caller of a service method.
type Identity struct {
	UserID string

	// DeviceID is optional. When set it must be registered to UserID.
	DeviceID string
}

// ChangeSource produces the change feed of one entity type.
type ChangeSource[B any] interface {
	Changes(ctx context.Context, userID string, since int64) ([]changefeed.ChangeRecord[B], error)
}

// Callers checks that an Identity refers to a registered user and device.
type Callers struct {
	users   storage.UserRepository
	devices storage.DeviceRepository
}

// NewCallers returns a checker over the given repositories.
func NewCallers(users storage.UserRepository, devices storage.DeviceRepository) *Callers {
	return &Callers{users: users, devices: devices}
}

// Check fails with a ValidationError when the user or the named device is
// not registered.
func (c *Callers) Check(ctx context.Context, who Identity) error {
	if who.UserID == "" {
		return storage.NewValidationError("", "user not registered")
	}
	if _, err := c.users.GetByID(ctx, who.UserID); err != nil {
		if storage.IsNotFound(err) {
			return storage.NewValidationError("", "user not registered")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if who.DeviceID == "" {
		return nil
	}
	device, err := c.devices.Get(ctx, who.DeviceID)
	if storage.IsNotFound(err) || (err == nil && device.UserID != who.UserID) {
		return storage.NewValidationError("device_id", "device not registered")
	}
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}
	return nil
}

// User returns the registered user of who.
func (c *Callers) User(ctx context.Context, who Identity) (*models.User, error) {
	if err := c.Check(ctx, who); err != nil {
		return nil, err
	}
	return c.users.GetByID(ctx, who.UserID)
}
