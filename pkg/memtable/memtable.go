// Package memtable is an ordered, lock-free skip list backend used as a
// baseline against the segment store.
package memtable

import (
	"bytes"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"memkv/pkg/types"
)

type orderedMap = skipmap.FuncMap[[]byte, []byte]

type Memtable struct {
	underlying *orderedMap
	size       atomic.Uint64
}

func New() *Memtable {
	return &Memtable{
		underlying: skipmap.NewFunc[[]byte, []byte](func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
}

func (mt *Memtable) Set(key types.Key, value types.Value) error {
	k, v := bytes.Clone(key), bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}

	old, loaded := mt.underlying.LoadOrStore(k, v)
	if loaded {
		mt.underlying.Store(k, v)
		// wraps when the value shrinks
		mt.size.Add(uint64(len(v)) - uint64(len(old)))
		return nil
	}

	mt.size.Add(uint64(len(k) + len(v)))
	return nil
}

func (mt *Memtable) Get(key types.Key) (types.Value, bool) {
	return mt.underlying.Load(key)
}

func (mt *Memtable) Len() int {
	return mt.underlying.Len()
}

// Size is the number of key and value bytes held.
func (mt *Memtable) Size() uint64 {
	return mt.size.Load()
}

// Range visits entries in key order until fn returns false.
func (mt *Memtable) Range(fn func(key types.Key, value types.Value) bool) {
	mt.underlying.Range(fn)
}
