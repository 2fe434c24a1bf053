package db

import (
	"bytes"

	"memkv/pkg/types"
)

// KV is the surface every backend of the benchmark provides.
type KV interface {
	Set(key types.Key, value types.Value) error
	Get(key types.Key) (types.Value, bool)
	Len() int
}

// Map is the built-in map baseline. Keys and values are copied in.
type Map struct {
	m map[string][]byte
}

func NewMap() *Map {
	return &Map{m: make(map[string][]byte)}
}

func (m *Map) Set(key types.Key, value types.Value) error {
	m.m[string(key)] = bytes.Clone(value)
	return nil
}

func (m *Map) Get(key types.Key) (types.Value, bool) {
	v, ok := m.m[string(key)]
	return v, ok
}

func (m *Map) Len() int {
	return len(m.m)
}
