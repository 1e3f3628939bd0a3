// Package changefeed answers "what changed since T" for one entity type by
// scanning current rows on their modification timestamp. There is no event
// log behind it: every record is classified from the row as it is now, so
// repeating a query with the same checkpoint returns the same records until
// something is written.
package changefeed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/receiptbook/internal/metrics"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Action classifies a change record.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ChangeRecord is one entry of a change feed. Body is nil for deletes.
// UpdatedAt is the row's modification time in unix milliseconds; the
// largest one seen is the checkpoint to resume from.
type ChangeRecord[B any] struct {
	Action    Action `json:"action"`
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updated_at"`
	Body      *B     `json:"body"`
}

// Projection turns the live rows of a feed page into response bodies, one
// per row and in the same order.
type Projection[T, B any] func(ctx context.Context, rows []*T) ([]B, error)

// Identity returns the rows themselves as bodies.
func Identity[T any]() Projection[T, T] {
	return func(_ context.Context, rows []*T) ([]T, error) {
		out := make([]T, len(rows))
		for i, r := range rows {
			out[i] = *r
		}
		return out, nil
	}
}

// Feed generates change records for the rows of T.
type Feed[T, B any] struct {
	gw      *sqldb.Gateway[T]
	project Projection[T, B]
	query   string
}

// New returns a feed over gw. The mapping must be versioned, tracked and
// owned; anything else cannot be classified.
func New[T, B any](gw *sqldb.Gateway[T], project Projection[T, B]) (*Feed[T, B], error) {
	m := gw.Mapping()
	switch {
	case !m.Versioned():
		return nil, &storage.ConfigurationError{Type: m.Name(), Reason: "change feed needs a version field"}
	case !m.Tracked():
		return nil, &storage.ConfigurationError{Type: m.Name(), Reason: "change feed needs an updated_at field"}
	case m.OwnerColumn() == "":
		return nil, &storage.ConfigurationError{Type: m.Name(), Reason: "change feed needs an owner column"}
	case project == nil:
		return nil, &storage.ConfigurationError{Type: m.Name(), Reason: "change feed needs a projection"}
	}
	clause := fmt.Sprintf("%s = ? AND %s > ? ORDER BY %s, %s",
		m.OwnerColumn(), mapping.UpdatedAtColumn, mapping.UpdatedAtColumn, mapping.IDColumn)
	return &Feed[T, B]{gw: gw, project: project, query: clause}, nil
}

// Changes returns every row of userID modified strictly after since (unix
// milliseconds), oldest first.
func (f *Feed[T, B]) Changes(ctx context.Context, userID string, since int64) ([]ChangeRecord[B], error) {
	m := f.gw.Mapping()
	rows, err := f.gw.Select(f.query, userID, since).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s changes: %w", m.Table(), err)
	}

	records := make([]ChangeRecord[B], len(rows))
	var live []*T
	var liveAt []int
	for i, row := range rows {
		records[i].ID = m.ID(row)
		records[i].UpdatedAt = m.UpdatedAt(row)
		switch {
		case m.Deleted(row):
			records[i].Action = ActionDelete
			continue
		case m.Version(row) == 0:
			records[i].Action = ActionCreate
		default:
			records[i].Action = ActionUpdate
		}
		live = append(live, row)
		liveAt = append(liveAt, i)
	}

	if len(live) > 0 {
		bodies, err := f.project(ctx, live)
		if err != nil {
			return nil, fmt.Errorf("failed to project %s changes: %w", m.Table(), err)
		}
		if len(bodies) != len(live) {
			return nil, fmt.Errorf("projection of %s returned %d bodies for %d rows", m.Table(), len(bodies), len(live))
		}
		for j, at := range liveAt {
			records[at].Body = &bodies[j]
		}
	}

	for _, r := range records {
		metrics.ChangeRecords.WithLabelValues(m.Table(), string(r.Action)).Inc()
	}
	slog.Debug("Changes generated",
		"table", m.Table(),
		"user_id", userID,
		"since", since,
		"records", len(records),
	)
	return records, nil
}
