// Package reconcile replaces the persisted child rows of an aggregate with a
// client-submitted desired list using the minimal create, update and delete
// operations, keyed strictly by child id.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/mmynk/receiptbook/internal/metrics"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Children reconciles the rows of C owned by one parent.
type Children[C any] struct {
	// Gateway persists the child rows.
	Gateway *sqldb.Gateway[C]

	// ParentColumn is the foreign key column naming the parent.
	ParentColumn string

	// SetParent writes the parent id into a child.
	SetParent func(*C, string)

	// SetOrder writes the 0-based position into a child.
	SetOrder func(*C, int)
}

// Result lists the child ids touched by one Sync, in operation order.
type Result struct {
	Created []string
	Updated []string
	Deleted []string
}

// Sync makes the persisted children of parentID equal to items. Each item
// gets its index as sort order and parentID as parent. Items whose id is
// already persisted under the parent are updated, the rest are created,
// and persisted ids missing from items are deleted. parentExisted false
// means the parent row is brand new and skips loading existing children.
//
// The statements run one by one, not in a transaction. On failure the
// returned Result holds what was applied before the error.
func (c *Children[C]) Sync(ctx context.Context, parentID string, items []*C, parentExisted bool) (Result, error) {
	var res Result
	m := c.Gateway.Mapping()
	table := m.Table()

	if err := ValidateIDs(m, items); err != nil {
		return res, err
	}

	candidates := make(map[string]bool)
	if parentExisted {
		ids, err := c.Gateway.Select(c.ParentColumn+" = ?", parentID).IDs(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to load %s of %s: %w", table, parentID, err)
		}
		for _, id := range ids {
			candidates[id] = true
		}
	}

	for i, item := range items {
		c.SetOrder(item, i)
		c.SetParent(item, parentID)
		id := m.ID(item)
		if candidates[id] {
			if err := c.Gateway.Update(ctx, item); err != nil {
				return res, err
			}
			delete(candidates, id)
			res.Updated = append(res.Updated, id)
			continue
		}
		if err := c.Gateway.Create(ctx, item); err != nil {
			return res, err
		}
		res.Created = append(res.Created, id)
	}

	// Leftover candidates are children the client dropped.
	for _, id := range slices.Sorted(maps.Keys(candidates)) {
		if err := c.Gateway.Delete(ctx, id); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, id)
	}

	metrics.ReconciledChildren.WithLabelValues(table, "create").Add(float64(len(res.Created)))
	metrics.ReconciledChildren.WithLabelValues(table, "update").Add(float64(len(res.Updated)))
	metrics.ReconciledChildren.WithLabelValues(table, "delete").Add(float64(len(res.Deleted)))
	slog.Debug("Children reconciled",
		"table", table,
		"parent_id", parentID,
		"created", len(res.Created),
		"updated", len(res.Updated),
		"deleted", len(res.Deleted),
	)
	return res, nil
}

// ValidateIDs rejects empty and repeated child ids. Sync calls it before
// any write; parents call it before writing themselves.
func ValidateIDs[C any](m *mapping.Mapping[C], items []*C) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		id := m.ID(item)
		if id == "" {
			return storage.NewValidationError(fmt.Sprintf("items[%d].id", i), "is required")
		}
		if seen[id] {
			return storage.NewValidationError(fmt.Sprintf("items[%d].id", i), "duplicate id %s", id)
		}
		seen[id] = true
	}
	return nil
}
