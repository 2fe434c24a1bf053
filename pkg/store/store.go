// Package store is an in-memory key-value store keeping keys and values
// back to back in large append-only segments, indexed by an open-addressing
// directory of 8-byte slots.
//
// A Store is not safe for concurrent use; callers sharing one must serialize
// access with a single mutex.
package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"

	"github.com/cespare/xxhash/v2"

	"memkv/pkg/batch"
	"memkv/pkg/clock"
	"memkv/pkg/config"
	"memkv/pkg/dberrors"
	"memkv/pkg/directory"
	"memkv/pkg/metrics"
	"memkv/pkg/segment"
	"memkv/pkg/types"
)

const maxSegmentID = math.MaxUint32

// Hasher maps a key to the 64-bit hash the directory is probed with.
type Hasher func(key []byte) uint64

type Store struct {
	cfg     config.StoreConfig
	hash    Hasher
	log     *slog.Logger
	metrics metrics.Collector

	ids      *clock.Sequence
	current  types.SegmentID
	segments []*segment.Segment // indexed by id, nil once reclaimed
	dir      *directory.Directory
	count    int

	rehashes    int
	rotations   int
	compactions int
	relocated   int
}

func New(cfg config.StoreConfig, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dir, err := directory.New(cfg.InitialCapacity)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		hash:    xxhash.Sum64,
		log:     slog.Default(),
		metrics: metrics.Noop{},
		ids:     clock.NewSequence(0),
		dir:     dir,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.openSegment(); err != nil {
		return nil, err
	}

	return s, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value []byte) error {
	if _, err := s.segments[s.current].RecordCapacity(len(key), len(value)); err != nil {
		return err
	}

	h := s.hash(key)

	var retireErr error
	i, claim, err := s.dir.InsertOrUpdate(h, func(loc directory.Location) directory.Verdict {
		seg := s.segment(loc.Segment)
		if seg == nil {
			return directory.Continue
		}

		switch seg.Update(loc.Offset, key, value) {
		case segment.Updated:
			return directory.Stop
		case segment.DoesNotFit:
			retireErr = s.retire(loc)
			return directory.Claim
		default:
			return directory.Continue
		}
	})
	if err != nil {
		return fmt.Errorf("failed to insert key: %w", err)
	}
	if retireErr != nil {
		return fmt.Errorf("failed to retire record: %w", retireErr)
	}
	if !claim {
		return nil
	}

	loc, err := s.append(key, value)
	if err != nil {
		return err
	}

	fresh, err := s.dir.Assign(i, h, loc)
	if err != nil {
		return err
	}
	if fresh {
		s.count++
	}

	if s.dir.NeedsGrowth() {
		return s.grow()
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key []byte) ([]byte, bool) {
	value, ok := s.lookup(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(value), true
}

// Write applies the sets of wb in order. Record sizes are checked before
// anything is written.
func (s *Store) Write(wb *batch.WriteBatch) error {
	seg := s.segments[s.current]
	err := wb.Each(func(key, value []byte) error {
		_, err := seg.RecordCapacity(len(key), len(value))
		return err
	})
	if err != nil {
		return err
	}

	return wb.Each(s.Set)
}

// Range calls fn with a copy of every live entry, segment by segment, until
// fn returns false. fn must not modify the store.
func (s *Store) Range(fn func(key, value []byte) bool) {
	for _, seg := range s.segments {
		if seg == nil {
			continue
		}
		for c := seg.Cursor(); c.Valid(); c.Next() {
			if !fn(bytes.Clone(c.Key()), bytes.Clone(c.Value())) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.count
}

func (s *Store) lookup(key []byte) ([]byte, bool) {
	var value []byte
	found := s.dir.Lookup(s.hash(key), func(loc directory.Location) bool {
		seg := s.segment(loc.Segment)
		if seg == nil {
			return false
		}

		v, st := seg.Fetch(loc.Offset, key)
		if st != segment.Found {
			return false
		}
		value = v
		return true
	})

	return value, found
}

func (s *Store) segment(id types.SegmentID) *segment.Segment {
	if int(id) >= len(s.segments) {
		return nil
	}
	return s.segments[id]
}

// append writes the pair into the current segment and rotates it once it
// passes the size limit.
func (s *Store) append(key, value []byte) (directory.Location, error) {
	seg := s.segments[s.current]

	capa, err := seg.RecordCapacity(len(key), len(value))
	if err != nil {
		return directory.Location{}, err
	}
	if seg.Len()+4+int(capa) > s.cfg.SegmentLimit && s.ids.Peek() > maxSegmentID {
		return directory.Location{}, fmt.Errorf("%w: segment ids exhausted", dberrors.ErrCapacityOverflow)
	}

	off, err := seg.Append(key, value)
	if err != nil {
		return directory.Location{}, err
	}
	loc := directory.Location{Segment: s.current, Offset: off}

	if seg.Len() > s.cfg.SegmentLimit {
		if err := s.rotate(); err != nil {
			return loc, err
		}
	}

	return loc, nil
}

func (s *Store) rotate() error {
	sealed, id := s.segments[s.current], s.current
	sealed.Seal()

	if err := s.openSegment(); err != nil {
		return err
	}

	s.rotations++
	s.metrics.IncCounter("rotation_total", nil, 1)
	s.metrics.SetGauge("segments", nil, float64(s.liveSegments()))
	s.log.Debug("segment sealed", "segment", id, "bytes", sealed.Len(), "next", s.current)
	return nil
}

func (s *Store) openSegment() error {
	id, ok := s.ids.Take(maxSegmentID)
	if !ok {
		return fmt.Errorf("%w: segment ids exhausted", dberrors.ErrCapacityOverflow)
	}

	seg, err := segment.New(s.cfg.Ceil)
	if err != nil {
		return err
	}

	for uint64(len(s.segments)) < id {
		s.segments = append(s.segments, nil)
	}
	s.segments = append(s.segments, seg)
	s.current = types.SegmentID(id)
	return nil
}

func (s *Store) grow() error {
	from := s.dir.Capacity()
	if err := s.dir.Grow(s.entries); err != nil {
		return fmt.Errorf("failed to grow directory: %w", err)
	}

	s.rehashes++
	s.metrics.IncCounter("rehash_total", nil, 1)
	s.metrics.SetGauge("directory_capacity", nil, float64(s.dir.Capacity()))
	s.metrics.SetGauge("entries", nil, float64(s.count))
	s.log.Debug("directory grown", "from", from, "to", s.dir.Capacity(), "entries", s.count)
	return nil
}

// entries yields the hash and location of every live record.
func (s *Store) entries(visit func(h uint64, loc directory.Location)) {
	for id, seg := range s.segments {
		if seg == nil {
			continue
		}
		seg.ForEachLocation(func(off types.Offset, key []byte) {
			visit(s.hash(key), directory.Location{Segment: types.SegmentID(id), Offset: off})
		})
	}
}

func (s *Store) liveSegments() int {
	n := 0
	for _, seg := range s.segments {
		if seg != nil {
			n++
		}
	}
	return n
}
