// Package mapping declares, once per entity type, how a Go struct maps onto
// a table: identity, ordered scalar properties, and the optional version and
// modification columns. From that declaration it renders the parameterized
// CRUD statements used by the gateway and hydrates rows back into entities.
package mapping

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
)

// Reserved column names.
const (
	IDColumn        = "id"
	VersionColumn   = "version"
	UpdatedAtColumn = "updated_at"
)

// Config is the declaration of one entity type.
type Config[T any] struct {
	// Table is the table name. Required.
	Table string

	// ID returns the identity field. Required.
	ID func(*T) *string

	// Properties are the scalar columns in declaration order.
	Properties []Property[T]

	// Version returns the optimistic concurrency counter. Nil means the
	// entity is unversioned and updates match on id alone.
	Version func(*T) *int64

	// UpdatedAt returns the modification timestamp (unix milliseconds)
	// written on every insert and update. Nil disables tracking.
	UpdatedAt func(*T) *int64

	// Tombstone names a declared Bool property marking soft deletes.
	Tombstone string

	// Owner names a declared String property holding the owning user id.
	Owner string

	// Indexes lists declared columns that get a secondary index.
	Indexes []string
}

// Mapping is the validated, immutable form of a Config.
type Mapping[T any] struct {
	name      string
	cfg       Config[T]
	tombstone *Property[T]
	owner     *Property[T]

	once  sync.Once
	stmts statements
}

type statements struct {
	columns       string
	insert        string
	selectPrefix  string
	selectByID    string
	update        string
	deleteByID    string
	deleteVersion string
	exists        string
}

// New validates cfg and returns its mapping.
func New[T any](cfg Config[T]) (*Mapping[T], error) {
	m := &Mapping[T]{name: typeName[T](), cfg: cfg}
	if cfg.Table == "" {
		return nil, m.configError("table name is required")
	}
	if cfg.ID == nil {
		return nil, m.configError("identity field is required")
	}

	seen := map[string]bool{IDColumn: true}
	if cfg.Version != nil {
		seen[VersionColumn] = true
	}
	if cfg.UpdatedAt != nil {
		seen[UpdatedAtColumn] = true
	}
	for i := range cfg.Properties {
		p := &m.cfg.Properties[i]
		if p.Column == "" {
			return nil, m.configError(fmt.Sprintf("property %d has no column", i))
		}
		if !p.valid() {
			return nil, m.configError(fmt.Sprintf("property %q has no field accessor", p.Column))
		}
		if seen[p.Column] {
			return nil, m.configError(fmt.Sprintf("column %q declared twice", p.Column))
		}
		seen[p.Column] = true
		if p.Column == cfg.Tombstone {
			if p.Type != dialect.Boolean {
				return nil, m.configError(fmt.Sprintf("tombstone %q must be a boolean column", p.Column))
			}
			m.tombstone = p
		}
		if p.Column == cfg.Owner {
			if p.Type != dialect.Text {
				return nil, m.configError(fmt.Sprintf("owner %q must be a text column", p.Column))
			}
			m.owner = p
		}
	}
	if cfg.Tombstone != "" && m.tombstone == nil {
		return nil, m.configError(fmt.Sprintf("tombstone %q is not a declared property", cfg.Tombstone))
	}
	if cfg.Owner != "" && m.owner == nil {
		return nil, m.configError(fmt.Sprintf("owner %q is not a declared property", cfg.Owner))
	}
	for _, col := range cfg.Indexes {
		if !seen[col] {
			return nil, m.configError(fmt.Sprintf("index on undeclared column %q", col))
		}
	}
	return m, nil
}

// MustNew is like New but panics on a configuration error. It is meant for
// package-level mapping declarations.
func MustNew[T any](cfg Config[T]) *Mapping[T] {
	m, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mapping[T]) configError(reason string) error {
	return &storage.ConfigurationError{Type: m.name, Reason: reason}
}

// Name is the Go type name, used in logs and errors.
func (m *Mapping[T]) Name() string { return m.name }

// Table is the mapped table name.
func (m *Mapping[T]) Table() string { return m.cfg.Table }

// Versioned reports whether updates are guarded by a version column.
func (m *Mapping[T]) Versioned() bool { return m.cfg.Version != nil }

// Tracked reports whether the mapping records modification timestamps.
func (m *Mapping[T]) Tracked() bool { return m.cfg.UpdatedAt != nil }

// OwnerColumn returns the owner column, or "" if none was declared.
func (m *Mapping[T]) OwnerColumn() string { return m.cfg.Owner }

// TombstoneColumn returns the tombstone column, or "" if none was declared.
func (m *Mapping[T]) TombstoneColumn() string { return m.cfg.Tombstone }

// ID returns the identity of e.
func (m *Mapping[T]) ID(e *T) string { return *m.cfg.ID(e) }

// SetID assigns the identity of e.
func (m *Mapping[T]) SetID(e *T, id string) { *m.cfg.ID(e) = id }

// Version returns the version of e, or 0 for unversioned entities.
func (m *Mapping[T]) Version(e *T) int64 {
	if m.cfg.Version == nil {
		return 0
	}
	return *m.cfg.Version(e)
}

// SetVersion assigns the version of e. It is a no-op for unversioned entities.
func (m *Mapping[T]) SetVersion(e *T, v int64) {
	if m.cfg.Version != nil {
		*m.cfg.Version(e) = v
	}
}

// UpdatedAt returns the modification timestamp of e, or 0 for untracked entities.
func (m *Mapping[T]) UpdatedAt(e *T) int64 {
	if m.cfg.UpdatedAt == nil {
		return 0
	}
	return *m.cfg.UpdatedAt(e)
}

// SetUpdatedAt assigns the modification timestamp of e.
func (m *Mapping[T]) SetUpdatedAt(e *T, ms int64) {
	if m.cfg.UpdatedAt != nil {
		*m.cfg.UpdatedAt(e) = ms
	}
}

// Deleted reports whether e carries a set tombstone.
func (m *Mapping[T]) Deleted(e *T) bool {
	if m.tombstone == nil {
		return false
	}
	return *m.tombstone.Dest(e).(*bool)
}

// SetDeleted sets the tombstone of e. It is a no-op without a tombstone.
func (m *Mapping[T]) SetDeleted(e *T, deleted bool) {
	if m.tombstone != nil {
		*m.tombstone.Dest(e).(*bool) = deleted
	}
}

// Owner returns the owning user id of e, or "" without an owner column.
func (m *Mapping[T]) Owner(e *T) string {
	if m.owner == nil {
		return ""
	}
	return *m.owner.Dest(e).(*string)
}

// Columns returns every column in select order.
func (m *Mapping[T]) Columns() []string {
	cols := make([]string, 0, len(m.cfg.Properties)+3)
	cols = append(cols, IDColumn)
	for _, p := range m.cfg.Properties {
		cols = append(cols, p.Column)
	}
	if m.cfg.Version != nil {
		cols = append(cols, VersionColumn)
	}
	if m.cfg.UpdatedAt != nil {
		cols = append(cols, UpdatedAtColumn)
	}
	return cols
}

// Insert returns the insert statement. Column order is identity, declared
// properties, version, updated_at.
func (m *Mapping[T]) Insert() string { return m.statements().insert }

// SelectByID returns the point lookup statement.
func (m *Mapping[T]) SelectByID() string { return m.statements().selectByID }

// Select returns a select of all columns filtered by clause. The clause is
// everything after WHERE and may carry ORDER BY or LIMIT; an empty clause
// selects the whole table.
func (m *Mapping[T]) Select(clause string) string {
	prefix := m.statements().selectPrefix
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return prefix
	}
	upper := strings.ToUpper(clause)
	if strings.HasPrefix(upper, "ORDER BY") || strings.HasPrefix(upper, "LIMIT") {
		return prefix + " " + clause
	}
	return prefix + " WHERE " + clause
}

// SelectID is like Select but returns only the identity column.
func (m *Mapping[T]) SelectID(clause string) string {
	sel := m.Select(clause)
	return "SELECT " + IDColumn + sel[len("SELECT ")+len(m.statements().columns):]
}

// Update returns the update statement. For versioned entities it is
// guarded by id = ? AND version < ? AND version >= ?, bound to the new and
// the submitted version, so a stale writer matches zero rows.
func (m *Mapping[T]) Update() string { return m.statements().update }

// DeleteByID returns the unconditional delete by id.
func (m *Mapping[T]) DeleteByID() string { return m.statements().deleteByID }

// DeleteVersion returns the delete guarded by id and version. It equals
// DeleteByID for unversioned entities.
func (m *Mapping[T]) DeleteVersion() string { return m.statements().deleteVersion }

// Exists returns a statement selecting 1 for a present id.
func (m *Mapping[T]) Exists() string { return m.statements().exists }

func (m *Mapping[T]) statements() *statements {
	m.once.Do(m.build)
	return &m.stmts
}

func (m *Mapping[T]) build() {
	table := m.cfg.Table
	cols := m.Columns()
	s := &m.stmts

	s.columns = strings.Join(cols, ", ")
	s.insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, s.columns, placeholders(len(cols)))
	s.selectPrefix = fmt.Sprintf("SELECT %s FROM %s", s.columns, table)
	s.selectByID = s.selectPrefix + " WHERE id = ?"

	sets := make([]string, 0, len(m.cfg.Properties)+2)
	for _, p := range m.cfg.Properties {
		sets = append(sets, p.Column+" = ?")
	}
	if m.cfg.Version != nil {
		sets = append(sets, "version = version + 1")
	}
	if m.cfg.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
	}
	where := "id = ?"
	if m.cfg.Version != nil {
		where = "id = ? AND version < ? AND version >= ?"
	}
	s.update = fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)

	s.deleteByID = fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	s.deleteVersion = s.deleteByID
	if m.cfg.Version != nil {
		s.deleteVersion = fmt.Sprintf("DELETE FROM %s WHERE id = ? AND version = ?", table)
	}
	s.exists = fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table)
}

// InsertArgs returns the insert parameters for e with the version forced to
// zero and the modification time set to nowMs.
func (m *Mapping[T]) InsertArgs(e *T, nowMs int64) []any {
	args := make([]any, 0, len(m.cfg.Properties)+3)
	args = append(args, m.ID(e))
	for _, p := range m.cfg.Properties {
		args = append(args, p.Value(e))
	}
	if m.cfg.Version != nil {
		args = append(args, int64(0))
	}
	if m.cfg.UpdatedAt != nil {
		args = append(args, nowMs)
	}
	return args
}

// UpdateArgs returns the update parameters for e in the order of Update.
func (m *Mapping[T]) UpdateArgs(e *T, nowMs int64) []any {
	args := make([]any, 0, len(m.cfg.Properties)+4)
	for _, p := range m.cfg.Properties {
		args = append(args, p.Value(e))
	}
	if m.cfg.UpdatedAt != nil {
		args = append(args, nowMs)
	}
	args = append(args, m.ID(e))
	if m.cfg.Version != nil {
		v := m.Version(e)
		args = append(args, v+1, v)
	}
	return args
}

// ScanDest returns pointers into e in select column order.
func (m *Mapping[T]) ScanDest(e *T) []any {
	dest := make([]any, 0, len(m.cfg.Properties)+3)
	dest = append(dest, m.cfg.ID(e))
	for _, p := range m.cfg.Properties {
		dest = append(dest, p.Dest(e))
	}
	if m.cfg.Version != nil {
		dest = append(dest, m.cfg.Version(e))
	}
	if m.cfg.UpdatedAt != nil {
		dest = append(dest, m.cfg.UpdatedAt(e))
	}
	return dest
}

// CreateTable renders the DDL for the mapped table in the given dialect.
func (m *Mapping[T]) CreateTable(d string) ([]string, error) {
	keyType, err := dialect.ColumnType(d, dialect.Text, true)
	if err != nil {
		return nil, err
	}
	defs := []string{IDColumn + " " + keyType + " PRIMARY KEY"}
	indexed := make(map[string]bool, len(m.cfg.Indexes))
	for _, col := range m.cfg.Indexes {
		indexed[col] = true
	}
	for _, p := range m.cfg.Properties {
		typ, err := dialect.ColumnType(d, p.Type, indexed[p.Column])
		if err != nil {
			return nil, err
		}
		defs = append(defs, p.Column+" "+typ+" NOT NULL")
	}
	intType, _ := dialect.ColumnType(d, dialect.Integer, false)
	if m.cfg.Version != nil {
		defs = append(defs, VersionColumn+" "+intType+" NOT NULL")
	}
	if m.cfg.UpdatedAt != nil {
		defs = append(defs, UpdatedAtColumn+" "+intType+" NOT NULL")
	}

	table := m.cfg.Table
	var following []string
	for _, col := range m.cfg.Indexes {
		name := fmt.Sprintf("idx_%s_%s", table, col)
		if d == dialect.MySQL {
			// MySQL has no CREATE INDEX IF NOT EXISTS.
			defs = append(defs, fmt.Sprintf("INDEX %s (%s)", name, col))
			continue
		}
		following = append(following, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, col))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", table, strings.Join(defs, ",\n    "))}
	return append(stmts, following...), nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}
