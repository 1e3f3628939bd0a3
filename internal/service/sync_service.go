package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

// Change feed kinds.
const (
	KindBudgets    = "budgets"
	KindCategories = "categories"
	KindReceipts   = "receipts"
)

// SyncService answers the change feed queries.
type SyncService struct {
	budgets    ChangeSource[models.Budget]
	categories ChangeSource[models.Category]
	receipts   ChangeSource[models.ReceiptChange]
	callers    *Callers
}

// NewSyncService creates a SyncService.
func NewSyncService(
	budgets ChangeSource[models.Budget],
	categories ChangeSource[models.Category],
	receipts ChangeSource[models.ReceiptChange],
	callers *Callers,
) *SyncService {
	return &SyncService{
		budgets:    budgets,
		categories: categories,
		receipts:   receipts,
		callers:    callers,
	}
}

// Changes returns the change records of kind modified after since (unix
// milliseconds, exclusive). The result is a []changefeed.ChangeRecord of
// the kind's body type.
func (s *SyncService) Changes(ctx context.Context, who Identity, kind string, since int64) (any, error) {
	slog.Info("Changes request received",
		"user_id", who.UserID,
		"device_id", who.DeviceID,
		"kind", kind,
		"since", since,
	)
	if since < 0 {
		return nil, storage.NewValidationError("since", "must not be negative")
	}
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}

	var (
		out   any
		count int
		err   error
	)
	switch kind {
	case KindBudgets:
		records, e := s.budgets.Changes(ctx, who.UserID, since)
		out, count, err = records, len(records), e
	case KindCategories:
		records, e := s.categories.Changes(ctx, who.UserID, since)
		out, count, err = records, len(records), e
	case KindReceipts:
		records, e := s.receipts.Changes(ctx, who.UserID, since)
		out, count, err = records, len(records), e
	default:
		return nil, storage.NewValidationError("kind", "unknown change kind %q", kind)
	}
	if err != nil {
		logFailure("Changes", err, "kind", kind)
		return nil, err
	}
	slog.Info("Changes successful", "kind", kind, "count", count)
	return out, nil
}
