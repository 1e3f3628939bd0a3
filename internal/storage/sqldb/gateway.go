package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/receiptbook/internal/metrics"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
)

// Gateway runs the mapped CRUD statements of T over a Conn.
type Gateway[T any] struct {
	conn *Conn
	m    *mapping.Mapping[T]
	now  func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*gatewayOptions)

type gatewayOptions struct {
	now func() time.Time
}

// WithClock sets the clock used for modification timestamps.
func WithClock(now func() time.Time) GatewayOption {
	return func(o *gatewayOptions) { o.now = now }
}

// NewGateway returns a gateway for m over conn.
func NewGateway[T any](conn *Conn, m *mapping.Mapping[T], opts ...GatewayOption) *Gateway[T] {
	o := gatewayOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Gateway[T]{conn: conn, m: m, now: o.now}
}

// For returns a gateway for the registered mapping of T.
func For[T any](conn *Conn, opts ...GatewayOption) (*Gateway[T], error) {
	m, err := mapping.Lookup[T]()
	if err != nil {
		return nil, err
	}
	return NewGateway(conn, m, opts...), nil
}

// Mapping returns the mapping the gateway was built from.
func (g *Gateway[T]) Mapping() *mapping.Mapping[T] { return g.m }

// Conn returns the underlying connection.
func (g *Gateway[T]) Conn() *Conn { return g.conn }

// Now returns the gateway clock reading in unix milliseconds.
func (g *Gateway[T]) Now() int64 { return g.now().UnixMilli() }

// Create inserts e with its version forced to 0. A failed insert whose id
// is already stored reports a ConflictError: another writer created it
// first.
func (g *Gateway[T]) Create(ctx context.Context, e *T) error {
	now := g.Now()
	table, id := g.m.Table(), g.m.ID(e)
	if _, err := g.conn.Exec(ctx, "create", table, g.m.Insert(), g.m.InsertArgs(e, now)...); err != nil {
		if !errors.Is(err, storage.ErrConnectionLost) {
			if exists, xerr := g.Exists(ctx, id); xerr == nil && exists {
				observe(table, "create", "conflict")
				return &storage.ConflictError{Table: table, ID: id}
			}
		}
		observe(table, "create", "error")
		return fmt.Errorf("failed to create %s %s: %w", table, id, err)
	}
	g.m.SetVersion(e, 0)
	g.m.SetUpdatedAt(e, now)
	observe(table, "create", "ok")
	return nil
}

// Get returns the entity with the given id or a NotFoundError.
func (g *Gateway[T]) Get(ctx context.Context, id string) (*T, error) {
	table := g.m.Table()
	var found *T
	err := g.conn.Query(ctx, "get", table, g.m.SelectByID(), []any{id}, func(rows *sql.Rows) error {
		found = nil
		if !rows.Next() {
			return nil
		}
		e, err := g.scan(rows)
		found = e
		return err
	})
	if err != nil {
		observe(table, "get", "error")
		return nil, fmt.Errorf("failed to get %s %s: %w", table, id, err)
	}
	if found == nil {
		observe(table, "get", "not_found")
		return nil, &storage.NotFoundError{Table: table, ID: id}
	}
	observe(table, "get", "ok")
	return found, nil
}

// Update writes every property of e and advances its version by one. A
// versioned update that matches no row reports a ConflictError and leaves
// the stored row untouched. On success e carries the new version.
func (g *Gateway[T]) Update(ctx context.Context, e *T) error {
	now := g.Now()
	table, id := g.m.Table(), g.m.ID(e)
	n, err := g.conn.Exec(ctx, "update", table, g.m.Update(), g.m.UpdateArgs(e, now)...)
	if err != nil {
		observe(table, "update", "error")
		return fmt.Errorf("failed to update %s %s: %w", table, id, err)
	}
	if n == 0 {
		if g.m.Versioned() {
			observe(table, "update", "conflict")
			return &storage.ConflictError{Table: table, ID: id, Version: g.m.Version(e)}
		}
		observe(table, "update", "not_found")
		return &storage.NotFoundError{Table: table, ID: id}
	}
	g.m.SetVersion(e, g.m.Version(e)+1)
	g.m.SetUpdatedAt(e, now)
	observe(table, "update", "ok")
	return nil
}

// Delete removes the row with the given id.
func (g *Gateway[T]) Delete(ctx context.Context, id string) error {
	table := g.m.Table()
	n, err := g.conn.Exec(ctx, "delete", table, g.m.DeleteByID(), id)
	if err != nil {
		observe(table, "delete", "error")
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	if n == 0 {
		observe(table, "delete", "not_found")
		return &storage.NotFoundError{Table: table, ID: id}
	}
	observe(table, "delete", "ok")
	return nil
}

// DeleteVersion removes e only if its stored version still equals e's.
// Zero affected rows is a ConflictError when the row exists and a
// NotFoundError when it does not.
func (g *Gateway[T]) DeleteVersion(ctx context.Context, e *T) error {
	if !g.m.Versioned() {
		return g.Delete(ctx, g.m.ID(e))
	}
	table, id, version := g.m.Table(), g.m.ID(e), g.m.Version(e)
	n, err := g.conn.Exec(ctx, "delete", table, g.m.DeleteVersion(), id, version)
	if err != nil {
		observe(table, "delete", "error")
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	if n > 0 {
		observe(table, "delete", "ok")
		return nil
	}
	exists, err := g.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		observe(table, "delete", "conflict")
		return &storage.ConflictError{Table: table, ID: id, Version: version}
	}
	observe(table, "delete", "not_found")
	return &storage.NotFoundError{Table: table, ID: id}
}

// Exists reports whether a row with the given id is present.
func (g *Gateway[T]) Exists(ctx context.Context, id string) (bool, error) {
	table := g.m.Table()
	var exists bool
	err := g.conn.Query(ctx, "exists", table, g.m.Exists(), []any{id}, func(rows *sql.Rows) error {
		exists = rows.Next()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", table, id, err)
	}
	return exists, nil
}

// Select starts a read-only query over the mapped columns. clause is the
// text after WHERE; see mapping.Mapping.Select.
func (g *Gateway[T]) Select(clause string, args ...any) *Query[T] {
	return &Query[T]{g: g, clause: clause, args: args}
}

// Execute runs a write statement outside the generic CRUD shape and returns
// the affected row count.
func (g *Gateway[T]) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	table := g.m.Table()
	n, err := g.conn.Exec(ctx, "execute", table, query, args...)
	if err != nil {
		observe(table, "execute", "error")
		return 0, fmt.Errorf("failed to execute on %s: %w", table, err)
	}
	observe(table, "execute", "ok")
	return n, nil
}

func (g *Gateway[T]) scan(rows *sql.Rows) (*T, error) {
	e := new(T)
	if err := rows.Scan(g.m.ScanDest(e)...); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", g.m.Table(), err)
	}
	return e, nil
}

// Query is a lazily executed select. Nothing runs until a terminal.
type Query[T any] struct {
	g      *Gateway[T]
	clause string
	args   []any
}

// First returns the first row, or nil when the query matches nothing.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	table := q.g.m.Table()
	var first *T
	err := q.g.conn.Query(ctx, "select", table, q.g.m.Select(q.clause), q.args, func(rows *sql.Rows) error {
		first = nil
		if !rows.Next() {
			return nil
		}
		e, err := q.g.scan(rows)
		first = e
		return err
	})
	if err != nil {
		observe(table, "select", "error")
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	observe(table, "select", "ok")
	return first, nil
}

// All returns every matching row in query order.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	table := q.g.m.Table()
	var all []*T
	err := q.g.conn.Query(ctx, "select", table, q.g.m.Select(q.clause), q.args, func(rows *sql.Rows) error {
		all = all[:0]
		for rows.Next() {
			e, err := q.g.scan(rows)
			if err != nil {
				return err
			}
			all = append(all, e)
		}
		return nil
	})
	if err != nil {
		observe(table, "select", "error")
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	observe(table, "select", "ok")
	return all, nil
}

// IDs returns the identity of every matching row in query order.
func (q *Query[T]) IDs(ctx context.Context) ([]string, error) {
	table := q.g.m.Table()
	var ids []string
	err := q.g.conn.Query(ctx, "select", table, q.g.m.SelectID(q.clause), q.args, func(rows *sql.Rows) error {
		ids = ids[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan %s id: %w", table, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		observe(table, "select", "error")
		return nil, fmt.Errorf("failed to select %s ids: %w", table, err)
	}
	observe(table, "select", "ok")
	return ids, nil
}

func observe(table, op, result string) {
	metrics.GatewayOperations.WithLabelValues(table, op, result).Inc()
}
