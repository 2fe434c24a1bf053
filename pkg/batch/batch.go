package batch

import (
	"bytes"

	"memkv/pkg/types"
)

// WriteBatch collects sets to be applied in insertion order.
type WriteBatch struct {
	ops  []op
	size int
}

type op struct {
	key   types.Key
	value types.Value
}

func New() *WriteBatch {
	return &WriteBatch{}
}

// Put queues a copy of the pair.
func (wb *WriteBatch) Put(key types.Key, value types.Value) {
	wb.ops = append(wb.ops, op{key: bytes.Clone(key), value: bytes.Clone(value)})
	wb.size += len(key) + len(value)
}

func (wb *WriteBatch) Count() int {
	return len(wb.ops)
}

// Size is the number of key and value bytes queued.
func (wb *WriteBatch) Size() int {
	return wb.size
}

func (wb *WriteBatch) Clear() {
	clear(wb.ops)
	wb.ops = wb.ops[:0]
	wb.size = 0
}

// Each calls fn for every queued pair in order and stops at the first error.
func (wb *WriteBatch) Each(fn func(key types.Key, value types.Value) error) error {
	for _, o := range wb.ops {
		if err := fn(o.key, o.value); err != nil {
			return err
		}
	}
	return nil
}
