// Package sqldb is the versioned persistence gateway: a single owned
// database connection with a prepared statement cache, transparent
// reconnect-and-retry on connection loss, and generic CRUD over mapped
// entity types.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/receiptbook/internal/metrics"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
)

// Opener opens a fresh database handle. It is called once at Open and again
// on every reconnect.
type Opener func(ctx context.Context) (*sql.DB, error)

// Option configures a Conn.
type Option func(*Conn)

// WithLostDetector replaces the classifier deciding which errors mean the
// connection is unusable.
func WithLostDetector(fn func(error) bool) Option {
	return func(c *Conn) { c.lost = fn }
}

// WithLogger sets the logger used for driver failures and reconnects.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// Conn owns exactly one database connection. Statements are prepared once
// per connection generation and reused; a reconnect discards them all.
//
// The mutex serializes statement use on the single connection. It is not
// a data lock: concurrent writers are still arbitrated by the conditional
// update in the database.
type Conn struct {
	mu      sync.Mutex
	open    Opener
	dialect string
	lost    func(error) bool
	logger  *slog.Logger

	db    *sql.DB
	gen   uint64
	stmts map[string]*cachedStmt
}

type cachedStmt struct {
	stmt *sql.Stmt
	gen  uint64
}

// Open connects using open and returns the owning Conn.
func Open(ctx context.Context, dialectName string, open Opener, opts ...Option) (*Conn, error) {
	if !dialect.Valid(dialectName) {
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}
	c := &Conn{
		open:    open,
		dialect: dialectName,
		lost:    IsConnectionLost,
		logger:  slog.Default(),
		stmts:   make(map[string]*cachedStmt),
	}
	for _, opt := range opts {
		opt(c)
	}
	db, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.gen = 1
	return c, nil
}

// Dialect returns the dialect name.
func (c *Conn) Dialect() string { return c.dialect }

// Generation increments on every reconnect.
func (c *Conn) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// DB returns the current handle. It is replaced on reconnect, so callers
// must not hold on to it.
func (c *Conn) DB() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// Close releases cached statements and the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropStatements()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Exec runs a write statement and returns the affected row count.
func (c *Conn) Exec(ctx context.Context, op, table, query string, args ...any) (int64, error) {
	var affected int64
	err := c.run(ctx, op, table, query, func(stmt *sql.Stmt) error {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// Query runs a read statement and hands the cursor to consume. consume must
// build its result from scratch: after a reconnect it runs a second time.
func (c *Conn) Query(ctx context.Context, op, table, query string, args []any, consume func(*sql.Rows) error) error {
	return c.run(ctx, op, table, query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if err := consume(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

// run executes fn against the prepared form of query, reconnecting and
// retrying exactly once when the connection turns out to be unusable.
func (c *Conn) run(ctx context.Context, op, table, query string, fn func(*sql.Stmt) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.attempt(ctx, query, fn)
	if err == nil {
		return nil
	}
	if !c.lost(err) {
		c.logger.Error("Statement failed", "op", op, "table", table, "error", err)
		return err
	}

	c.logger.Warn("Database connection lost, reconnecting", "op", op, "table", table, "error", err)
	if rerr := c.reconnect(ctx); rerr != nil {
		c.logger.Error("Reconnect failed", "op", op, "table", table, "error", rerr)
		return &storage.ConnectionLostError{Op: op, Err: errors.Join(err, rerr)}
	}

	if err := c.attempt(ctx, query, fn); err != nil {
		c.logger.Error("Statement failed after reconnect", "op", op, "table", table, "error", err)
		if c.lost(err) {
			return &storage.ConnectionLostError{Op: op, Err: err}
		}
		return err
	}
	return nil
}

func (c *Conn) attempt(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	if c.db == nil {
		return sql.ErrConnDone
	}
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return err
	}
	return fn(stmt)
}

func (c *Conn) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if cs, ok := c.stmts[query]; ok {
		if cs.gen == c.gen {
			return cs.stmt, nil
		}
		// Bound to a replaced connection.
		cs.stmt.Close()
		delete(c.stmts, query)
	}
	stmt, err := c.db.PrepareContext(ctx, dialect.Rebind(c.dialect, query))
	if err != nil {
		return nil, err
	}
	c.stmts[query] = &cachedStmt{stmt: stmt, gen: c.gen}
	return stmt, nil
}

func (c *Conn) reconnect(ctx context.Context) error {
	c.dropStatements()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Debug("Closing lost connection failed", "error", err)
		}
		c.db = nil
	}
	db, err := c.connect(ctx)
	if err != nil {
		return err
	}
	c.db = db
	c.gen++
	metrics.Reconnects.Inc()
	c.logger.Info("Database reconnected", "generation", c.gen)
	return nil
}

func (c *Conn) connect(ctx context.Context) (*sql.DB, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// One connection per process instance.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func (c *Conn) dropStatements() {
	for query, cs := range c.stmts {
		cs.stmt.Close()
		delete(c.stmts, query)
	}
}
