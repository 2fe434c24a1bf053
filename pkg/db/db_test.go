package db

import "testing"

var _ KV = (*Map)(nil)

func TestMap_SetGet(t *testing.T) {
	m := NewMap()

	value := []byte("v1")
	if err := m.Set([]byte("k"), value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'x'

	v, ok := m.Get([]byte("k"))
	if !ok || string(v) != "v1" {
		t.Fatalf("Expected a copy of v1, got %q %v", v, ok)
	}
	if _, ok := m.Get([]byte("missing")); ok {
		t.Fatal("Unexpected hit")
	}
	if m.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", m.Len())
	}
}
