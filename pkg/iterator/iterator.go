package iterator

import "memkv/pkg/types"

// Iterator walks a sequence of key-value pairs forward, once.
type Iterator interface {
	// First moves to the first entry.
	First()
	// Next advances to the next entry.
	Next()
	// Valid reports whether the iterator points to a valid entry.
	Valid() bool
	// Key returns the current key.
	Key() types.Key
	// Value returns the current value.
	Value() types.Value
}
