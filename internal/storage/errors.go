package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below report true for errors.Is against
// their sentinel so callers can match either way.
var (
	ErrNotFound            = errors.New("entity not found")
	ErrConcurrencyConflict = errors.New("optimistic concurrency conflict")
	ErrConnectionLost      = errors.New("database connection lost")
	ErrValidation          = errors.New("validation failed")
	ErrConfiguration       = errors.New("invalid mapping configuration")
)

// NotFoundError reports a missing row.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Table, e.ID)
}

func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// ConflictError reports a versioned write that matched no row because
// another writer already advanced the version.
type ConflictError struct {
	Table   string
	ID      string
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: version %d is stale", e.Table, e.ID, e.Version)
}

func (e *ConflictError) Is(err error) bool { return err == ErrConcurrencyConflict }

// ConfigurationError reports a misdeclared entity mapping. It is raised at
// construction time and never at query time.
type ConfigurationError struct {
	Type   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("mapping %s: %s", e.Type, e.Reason)
}

func (e *ConfigurationError) Is(err error) bool { return err == ErrConfiguration }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(err error) bool { return err == ErrValidation }

// NewValidationError returns a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConnectionLostError is returned when an operation still fails with a
// connection error after the one transparent reconnect.
type ConnectionLostError struct {
	Op  string
	Err error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("%s: connection lost after reconnect: %v", e.Op, e.Err)
}

func (e *ConnectionLostError) Unwrap() error { return e.Err }

func (e *ConnectionLostError) Is(err error) bool { return err == ErrConnectionLost }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is an optimistic concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
