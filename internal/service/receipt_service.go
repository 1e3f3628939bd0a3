package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

// ReceiptService manages receipts and their items.
type ReceiptService struct {
	receipts storage.ReceiptRepository
	callers  *Callers
}

// NewReceiptService creates a ReceiptService.
func NewReceiptService(receipts storage.ReceiptRepository, callers *Callers) *ReceiptService {
	return &ReceiptService{receipts: receipts, callers: callers}
}

// Put stores r with exactly the submitted items. Items missing an id get
// one; items left out of r.Items are removed.
func (s *ReceiptService) Put(ctx context.Context, who Identity, r *models.Receipt) error {
	slog.Info("PutReceipt request received",
		"user_id", who.UserID,
		"receipt_id", r.ID,
		"version", r.Version,
		"items", len(r.Items),
	)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := validateReceipt(r); err != nil {
		return err
	}
	ensureID(&r.ID)
	r.UserID = who.UserID

	if err := s.receipts.Store(ctx, r); err != nil {
		logFailure("PutReceipt", err, "receipt_id", r.ID)
		return err
	}
	slog.Info("Receipt stored", "receipt_id", r.ID, "version", r.Version, "items", len(r.Items))
	return nil
}

// Get returns one live receipt of the caller with its items in order.
func (s *ReceiptService) Get(ctx context.Context, who Identity, id string) (*models.Receipt, error) {
	slog.Info("GetReceipt request received", "user_id", who.UserID, "receipt_id", id)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	r, err := s.receipts.Get(ctx, who.UserID, id)
	if err != nil {
		logFailure("GetReceipt", err, "receipt_id", id)
		return nil, err
	}
	return r, nil
}

// List returns the live receipts of the caller, newest date first.
func (s *ReceiptService) List(ctx context.Context, who Identity) ([]*models.Receipt, error) {
	slog.Info("ListReceipts request received", "user_id", who.UserID)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	receipts, err := s.receipts.List(ctx, who.UserID)
	if err != nil {
		logFailure("ListReceipts", err)
		return nil, err
	}
	slog.Info("ListReceipts successful", "count", len(receipts))
	return receipts, nil
}

// Delete tombstones a receipt of the caller if version is still current.
// Its items stay with it.
func (s *ReceiptService) Delete(ctx context.Context, who Identity, id string, version int64) error {
	slog.Info("DeleteReceipt request received", "user_id", who.UserID, "receipt_id", id, "version", version)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := s.receipts.SoftDelete(ctx, who.UserID, id, version); err != nil {
		logFailure("DeleteReceipt", err, "receipt_id", id)
		return err
	}
	return nil
}
