package store

import (
	"fmt"

	"memkv/pkg/dberrors"
	"memkv/pkg/directory"
	"memkv/pkg/types"
)

// retire tombstones the record at loc and reclaims its segment once it is
// mostly garbage.
func (s *Store) retire(loc directory.Location) error {
	seg := s.segment(loc.Segment)
	if err := seg.Tombstone(loc.Offset); err != nil {
		return err
	}
	if seg.NeedsCompaction() {
		return s.reclaim(loc.Segment)
	}
	return nil
}

// reclaim drops segment id after copying its live records into the current
// segment and pointing their directory slots at the copies.
func (s *Store) reclaim(id types.SegmentID) error {
	seg := s.segments[id]
	if id == s.current {
		if err := s.openSegment(); err != nil {
			return err
		}
	}
	s.segments[id] = nil

	var (
		moved int
		err   error
	)
	seg.ForEach(func(off types.Offset, key, value []byte) {
		if err != nil {
			return
		}

		var to directory.Location
		to, err = s.append(key, value)
		if err != nil {
			return
		}

		from := directory.Location{Segment: id, Offset: off}
		ok, rerr := s.dir.Relocate(s.hash(key), from, to)
		switch {
		case rerr != nil:
			err = rerr
		case !ok:
			err = fmt.Errorf("%w: no slot points at segment %d offset %d", dberrors.ErrDirectoryCorrupt, id, off)
		default:
			moved++
		}
	})
	if err != nil {
		return fmt.Errorf("failed to reclaim segment %d: %w", id, err)
	}

	s.compactions++
	s.relocated += moved
	s.metrics.IncCounter("compaction_total", nil, 1)
	s.metrics.ObserveHistogram("relocated_records", nil, float64(moved))
	s.metrics.SetGauge("segments", nil, float64(s.liveSegments()))
	s.log.Debug("segment reclaimed", "segment", id, "bytes", seg.Len(), "garbage", seg.Deleted(), "relocated", moved)
	return nil
}
