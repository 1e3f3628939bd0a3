package mapping

import "github.com/mmynk/receiptbook/internal/storage/dialect"

// Property binds one scalar field of T to a column.
type Property[T any] struct {
	Column string
	Type   dialect.Type

	value func(*T) any
	dest  func(*T) any
}

// Value returns the field value of e bound as a statement parameter.
func (p Property[T]) Value(e *T) any { return p.value(e) }

// Dest returns a pointer into e suitable for Rows.Scan.
func (p Property[T]) Dest(e *T) any { return p.dest(e) }

func (p Property[T]) valid() bool { return p.value != nil && p.dest != nil }

// String declares a text column.
func String[T any](column string, field func(*T) *string) Property[T] {
	p := Property[T]{Column: column, Type: dialect.Text}
	if field != nil {
		p.value = func(e *T) any { return *field(e) }
		p.dest = func(e *T) any { return field(e) }
	}
	return p
}

// Int declares an integer column. Values are bound as int64.
func Int[T any, N ~int | ~int32 | ~int64](column string, field func(*T) *N) Property[T] {
	p := Property[T]{Column: column, Type: dialect.Integer}
	if field != nil {
		p.value = func(e *T) any { return int64(*field(e)) }
		p.dest = func(e *T) any { return field(e) }
	}
	return p
}

// Float declares a double precision column.
func Float[T any](column string, field func(*T) *float64) Property[T] {
	p := Property[T]{Column: column, Type: dialect.Real}
	if field != nil {
		p.value = func(e *T) any { return *field(e) }
		p.dest = func(e *T) any { return field(e) }
	}
	return p
}

// Bool declares a boolean column.
func Bool[T any](column string, field func(*T) *bool) Property[T] {
	p := Property[T]{Column: column, Type: dialect.Boolean}
	if field != nil {
		p.value = func(e *T) any { return *field(e) }
		p.dest = func(e *T) any { return field(e) }
	}
	return p
}
