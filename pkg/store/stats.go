package store

import "memkv/pkg/types"

type Stats struct {
	Entries        int
	Occupied       int
	Capacity       int
	CurrentSegment types.SegmentID
	Segments       int
	Rehashes       int
	Rotations      int
	Compactions    int
	Relocated      int
	// DataBytes sums the buffer lengths of live segments, GarbageBytes
	// their tombstoned spans.
	DataBytes    int
	GarbageBytes int
}

func (s *Store) Stats() Stats {
	st := Stats{
		Entries:        s.count,
		Occupied:       s.dir.Occupied(),
		Capacity:       s.dir.Capacity(),
		CurrentSegment: s.current,
		Rehashes:       s.rehashes,
		Rotations:      s.rotations,
		Compactions:    s.compactions,
		Relocated:      s.relocated,
	}
	for _, seg := range s.segments {
		if seg == nil {
			continue
		}
		st.Segments++
		st.DataBytes += seg.Len()
		st.GarbageBytes += int(seg.Deleted())
	}
	return st
}

// SegmentIDs lists live segments in ascending order.
func (s *Store) SegmentIDs() []types.SegmentID {
	ids := make([]types.SegmentID, 0, len(s.segments))
	for id, seg := range s.segments {
		if seg != nil {
			ids = append(ids, types.SegmentID(id))
		}
	}
	return ids
}
