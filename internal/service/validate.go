package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// ensureID assigns a fresh id when id is empty.
func ensureID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
}

func validateVersion(v int64) error {
	if v < 0 {
		return storage.NewValidationError("version", "must not be negative")
	}
	return nil
}

func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return storage.NewValidationError(field, "must be a number")
	}
	if v < 0 {
		return storage.NewValidationError(field, "must not be negative")
	}
	return nil
}

func validateBudget(b *models.Budget) error {
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return storage.NewValidationError("month", "must be YYYY-MM, got %q", b.Month)
	}
	if err := validateAmount("amount", b.Amount); err != nil {
		return err
	}
	return validateVersion(b.Version)
}

func validateCategory(c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return storage.NewValidationError("name", "is required")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return storage.NewValidationError("color", "must be #RRGGBB, got %q", c.Color)
	}
	return validateVersion(c.Version)
}

// validateReceipt normalizes r and assigns missing item ids.
func validateReceipt(r *models.Receipt) error {
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return storage.NewValidationError("date", "must be YYYY-MM-DD, got %q", r.Date)
	}
	if err := validateAmount("total_amount", r.TotalAmount); err != nil {
		return err
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if !currencyPattern.MatchString(r.Currency) {
		return storage.NewValidationError("currency", "must be a 3 letter code, got %q", r.Currency)
	}
	switch r.State {
	case "":
		r.State = models.ReceiptPending
	case models.ReceiptPending, models.ReceiptProcessed, models.ReceiptFailed:
	default:
		return storage.NewValidationError("state", "unknown state %q", r.State)
	}
	if err := validateVersion(r.Version); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Items))
	for i := range r.Items {
		item := &r.Items[i]
		ensureID(&item.ID)
		if seen[item.ID] {
			return storage.NewValidationError("items", "duplicate item id %s", item.ID)
		}
		seen[item.ID] = true
		if err := validateAmount("items.amount", item.Amount); err != nil {
			return err
		}
	}
	return nil
}
