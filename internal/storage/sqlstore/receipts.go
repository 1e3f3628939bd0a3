package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/reconcile"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Receipts is the receipt repository. Items are written only through Store.
type Receipts struct {
	gw       *sqldb.Gateway[models.Receipt]
	items    *sqldb.Gateway[models.ReceiptItem]
	children *reconcile.Children[models.ReceiptItem]
}

func newReceipts(gw *sqldb.Gateway[models.Receipt], items *sqldb.Gateway[models.ReceiptItem]) *Receipts {
	return &Receipts{
		gw:    gw,
		items: items,
		children: &reconcile.Children[models.ReceiptItem]{
			Gateway:      items,
			ParentColumn: "receipt_id",
			SetParent:    func(i *models.ReceiptItem, id string) { i.ReceiptID = id },
			SetOrder:     func(i *models.ReceiptItem, n int) { i.SortOrder = n },
		},
	}
}

// Store creates or updates the receipt and then reconciles its items so
// the persisted set equals r.Items. The parent write and the item writes
// are separate statements, so every item id is checked before either.
func (r *Receipts) Store(ctx context.Context, rc *models.Receipt) error {
	items := make([]*models.ReceiptItem, len(rc.Items))
	for i := range rc.Items {
		items[i] = &rc.Items[i]
	}
	if err := reconcile.ValidateIDs(receiptItemMapping, items); err != nil {
		return err
	}

	rc.IsDeleted = false
	existing, err := r.gw.Get(ctx, rc.ID)
	existed := err == nil
	switch {
	case storage.IsNotFound(err):
	case err != nil:
		return err
	case existing.UserID != rc.UserID || existing.IsDeleted:
		return &storage.NotFoundError{Table: receiptMapping.Table(), ID: rc.ID}
	}
	if err := r.checkItemIDs(ctx, rc.ID, items); err != nil {
		return err
	}

	if existed {
		err = r.gw.Update(ctx, rc)
	} else {
		err = r.gw.Create(ctx, rc)
	}
	if err != nil {
		return err
	}

	if _, err := r.children.Sync(ctx, rc.ID, items, existed); err != nil {
		return fmt.Errorf("failed to reconcile items of receipt %s: %w", rc.ID, err)
	}
	return nil
}

// checkItemIDs rejects item ids already stored under another receipt.
// Item ids are global, so such an item would fail its insert after the
// parent was written.
func (r *Receipts) checkItemIDs(ctx context.Context, receiptID string, items []*models.ReceiptItem) error {
	if len(items) == 0 {
		return nil
	}
	args := make([]any, 0, len(items)+1)
	pos := make(map[string]int, len(items))
	for i, item := range items {
		args = append(args, item.ID)
		pos[item.ID] = i
	}
	args = append(args, receiptID)
	clause := fmt.Sprintf("id IN (%s) AND receipt_id <> ?", inList(len(items)))
	taken, err := r.items.Select(clause, args...).IDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to check receipt items: %w", err)
	}
	if len(taken) > 0 {
		return storage.NewValidationError(fmt.Sprintf("items[%d].id", pos[taken[0]]), "id %s is already in use", taken[0])
	}
	return nil
}

// Get returns the live receipt of userID with its items in sort order.
func (r *Receipts) Get(ctx context.Context, userID, id string) (*models.Receipt, error) {
	rc, err := r.gw.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rc.UserID != userID || rc.IsDeleted {
		return nil, &storage.NotFoundError{Table: receiptMapping.Table(), ID: id}
	}
	if err := r.hydrate(ctx, []*models.Receipt{rc}); err != nil {
		return nil, err
	}
	return rc, nil
}

// List returns the live receipts of userID, newest date first.
func (r *Receipts) List(ctx context.Context, userID string) ([]*models.Receipt, error) {
	receipts, err := r.gw.Select("user_id = ? AND is_deleted = ? ORDER BY date DESC, id", userID, false).All(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// SoftDelete tombstones the receipt if version is still current. Its items
// are kept with it.
func (r *Receipts) SoftDelete(ctx context.Context, userID, id string, version int64) error {
	rc, err := r.gw.Get(ctx, id)
	if err != nil {
		return err
	}
	if rc.UserID != userID || rc.IsDeleted {
		return &storage.NotFoundError{Table: receiptMapping.Table(), ID: id}
	}
	rc.Version = version
	rc.IsDeleted = true
	return r.gw.Update(ctx, rc)
}

// hydrate loads the items of every receipt in one query.
func (r *Receipts) hydrate(ctx context.Context, receipts []*models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	ids := make([]any, len(receipts))
	for i, rc := range receipts {
		ids[i] = rc.ID
	}
	clause := fmt.Sprintf("receipt_id IN (%s) ORDER BY receipt_id, sort_order", inList(len(ids)))
	items, err := r.items.Select(clause, ids...).All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load receipt items: %w", err)
	}

	byReceipt := make(map[string][]models.ReceiptItem, len(receipts))
	for _, item := range items {
		byReceipt[item.ReceiptID] = append(byReceipt[item.ReceiptID], *item)
	}
	for _, rc := range receipts {
		rc.Items = byReceipt[rc.ID]
		if rc.Items == nil {
			rc.Items = []models.ReceiptItem{}
		}
	}
	return nil
}

// project is the receipt change feed projection.
func (r *Receipts) project(ctx context.Context, rows []*models.Receipt) ([]models.ReceiptChange, error) {
	if err := r.hydrate(ctx, rows); err != nil {
		return nil, err
	}
	out := make([]models.ReceiptChange, len(rows))
	for i, rc := range rows {
		out[i] = models.ReceiptChange{Receipt: *rc, Categories: rc.Categories()}
	}
	return out, nil
}

// inList returns n comma separated placeholders.
func inList(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
