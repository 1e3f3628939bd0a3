package mapping

import (
	"reflect"
	"sync"

	"github.com/mmynk/receiptbook/internal/storage"
)

var registry sync.Map // reflect.Type -> *Mapping[T]

// Register records m as the mapping of T, replacing any earlier one.
func Register[T any](m *Mapping[T]) *Mapping[T] {
	registry.Store(reflect.TypeFor[T](), m)
	return m
}

// Lookup returns the registered mapping of T.
func Lookup[T any]() (*Mapping[T], error) {
	v, ok := registry.Load(reflect.TypeFor[T]())
	if !ok {
		return nil, &storage.ConfigurationError{Type: typeName[T](), Reason: "no mapping registered"}
	}
	return v.(*Mapping[T]), nil
}
