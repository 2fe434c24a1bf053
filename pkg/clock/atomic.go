package clock

import "sync/atomic"

// Sequence hands out ids in increasing order. The zero value starts at 0.
type Sequence struct {
	next atomic.Uint64
}

func NewSequence(start uint64) *Sequence {
	var s Sequence
	s.next.Store(start)
	return &s
}

// Peek returns the id the next call to Take would return.
func (s *Sequence) Peek() uint64 {
	return s.next.Load()
}

// Take returns the next id, or false once the sequence would pass limit.
func (s *Sequence) Take(limit uint64) (uint64, bool) {
	for {
		id := s.next.Load()
		if id > limit {
			return 0, false
		}
		if s.next.CompareAndSwap(id, id+1) {
			return id, true
		}
	}
}
