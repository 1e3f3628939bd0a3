// Package auth registers accounts, verifies credentials and issues the
// bearer tokens that identify a user on every sync request.
package auth

import (
	"context"

	"github.com/mmynk/receiptbook/internal/models"
)

// Authenticator verifies user credentials. Implementations differ only in
// what the credential is.
type Authenticator interface {
	// Register creates an account for email and returns it.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials that may not be registered.
	ValidateCredential(credential string) error
}
