package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

// BudgetService manages monthly budgets.
type BudgetService struct {
	budgets storage.BudgetRepository
	callers *Callers
}

// NewBudgetService creates a BudgetService.
func NewBudgetService(budgets storage.BudgetRepository, callers *Callers) *BudgetService {
	return &BudgetService{budgets: budgets, callers: callers}
}

// Put creates or updates b for the caller. b.Version must be the version
// the caller last observed; 0 for a new budget.
func (s *BudgetService) Put(ctx context.Context, who Identity, b *models.Budget) error {
	slog.Info("PutBudget request received",
		"user_id", who.UserID,
		"budget_id", b.ID,
		"version", b.Version,
	)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := validateBudget(b); err != nil {
		return err
	}
	ensureID(&b.ID)
	b.UserID = who.UserID

	if err := s.budgets.Store(ctx, b); err != nil {
		logFailure("PutBudget", err, "budget_id", b.ID)
		return err
	}
	slog.Info("Budget stored", "budget_id", b.ID, "version", b.Version)
	return nil
}

// Get returns one budget of the caller.
func (s *BudgetService) Get(ctx context.Context, who Identity, id string) (*models.Budget, error) {
	slog.Info("GetBudget request received", "user_id", who.UserID, "budget_id", id)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	b, err := s.budgets.Get(ctx, who.UserID, id)
	if err != nil {
		logFailure("GetBudget", err, "budget_id", id)
		return nil, err
	}
	return b, nil
}

// List returns every budget of the caller.
func (s *BudgetService) List(ctx context.Context, who Identity) ([]*models.Budget, error) {
	slog.Info("ListBudgets request received", "user_id", who.UserID)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	budgets, err := s.budgets.List(ctx, who.UserID)
	if err != nil {
		logFailure("ListBudgets", err)
		return nil, err
	}
	slog.Info("ListBudgets successful", "count", len(budgets))
	return budgets, nil
}

// Delete removes a budget of the caller if version is still current.
func (s *BudgetService) Delete(ctx context.Context, who Identity, id string, version int64) error {
	slog.Info("DeleteBudget request received", "user_id", who.UserID, "budget_id", id, "version", version)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := s.budgets.Delete(ctx, who.UserID, id, version); err != nil {
		logFailure("DeleteBudget", err, "budget_id", id)
		return err
	}
	return nil
}

// logFailure logs a failed call. Expected outcomes such as conflicts log at
// Info; anything else is an Error.
func logFailure(op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	switch {
	case storage.IsConflict(err), storage.IsNotFound(err), storage.IsValidation(err):
		slog.Info(op+" rejected", attrs...)
	default:
		slog.Error(op+" failed", attrs...)
	}
}
