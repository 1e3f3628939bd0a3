package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the user's email address (unique).
	// Used for login.
	Email string `json:"email"`

	// DisplayName is the name shown in the app.
	DisplayName string `json:"display_name"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64 `json:"created_at"`
}

// NewUser creates a user with a fresh ID and creation time.
func NewUser(email, displayName, passwordHash string) *User {
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}

// UserDevice is a device registered under a user. Devices pull the change
// feed independently of each other.
type UserDevice struct {
	// ID is the unique identifier for the device (client-generated or UUID).
	ID string `json:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id"`

	// Name is a human label, e.g. "Pixel 8".
	Name string `json:"name"`

	// Platform is the client platform, e.g. "android" or "ios".
	Platform string `json:"platform"`

	// CreatedAt is the Unix timestamp when the device was registered.
	CreatedAt int64 `json:"created_at"`
}
