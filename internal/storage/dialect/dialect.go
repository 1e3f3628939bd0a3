// Package dialect holds the small amount of SQL that differs between the
// supported databases: placeholder syntax and column types.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported dialect names. They double as database/sql driver names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// Type is the portable SQL type of a mapped column.
type Type int

const (
	Text Type = iota
	Integer
	Real
	Boolean
)

func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Boolean:
		return "boolean"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Valid reports whether name is a supported dialect.
func Valid(name string) bool {
	switch name {
	case SQLite, Postgres, MySQL:
		return true
	}
	return false
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Question marks inside single-quoted literals are left alone.
func Rebind(name, query string) string {
	if name != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n, quoted := 0, false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ColumnType returns the column type used in CREATE TABLE. Key columns get
// a bounded type where the dialect cannot index unbounded text.
func ColumnType(name string, t Type, key bool) (string, error) {
	switch name {
	case SQLite:
		switch t {
		case Text:
			return "TEXT", nil
		case Integer, Boolean:
			return "INTEGER", nil
		case Real:
			return "REAL", nil
		}
	case Postgres:
		switch t {
		case Text:
			return "TEXT", nil
		case Integer:
			return "BIGINT", nil
		case Real:
			return "DOUBLE PRECISION", nil
		case Boolean:
			return "BOOLEAN", nil
		}
	case MySQL:
		switch t {
		case Text:
			if key {
				return "VARCHAR(64)", nil
			}
			return "VARCHAR(255)", nil
		case Integer:
			return "BIGINT", nil
		case Real:
			return "DOUBLE", nil
		case Boolean:
			return "BOOLEAN", nil
		}
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
	return "", fmt.Errorf("dialect %s: unsupported column type %s", name, t)
}
