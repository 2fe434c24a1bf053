// Package segment implements the append-only byte buffers that hold the
// store's records.
//
// Layout, all integers little-endian uint32:
//
//	0   ceil           alignment granularity, a power of two
//	4   deleted bytes  capacity+4 summed over tombstoned records
//	8   records        capacity | key len | key | value len | value | zero pad
//	    sentinel       a zero capacity terminating the record chain
//
// A record occupies 4+capacity bytes, capacity being a multiple of ceil.
// Tombstoned records keep their capacity so traversal can step over them.
package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"memkv/pkg/dberrors"
	"memkv/pkg/types"
)

const (
	DefaultCeil = 16

	// HeaderSize is the size of the ceil and deleted-bytes fields.
	HeaderSize = 8

	capacitySize   = 4
	lengthsSize    = 8
	tombstone      = math.MaxUint32
	initialBufSize = 4 << 10
)

// Status is the outcome of a record-level operation.
type Status uint8

const (
	Found Status = iota
	Absent
	DoesNotFit
	Updated
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case DoesNotFit:
		return "does not fit"
	case Updated:
		return "updated"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Segment is a single growable record buffer. It is not safe for
// concurrent use.
type Segment struct {
	buf    []byte
	ceil   uint32
	sealed bool
}

// New returns an empty segment aligning records to ceil bytes.
func New(ceil uint32) (*Segment, error) {
	if ceil == 0 || ceil&(ceil-1) != 0 {
		return nil, fmt.Errorf("%w: ceil %d is not a power of two", dberrors.ErrInvalidArgument, ceil)
	}

	buf := make([]byte, HeaderSize+capacitySize, initialBufSize)
	binary.LittleEndian.PutUint32(buf[0:4], ceil)

	return &Segment{buf: buf, ceil: ceil}, nil
}

func (s *Segment) Ceil() uint32 {
	return s.ceil
}

// Len is the buffer length, header and sentinel included.
func (s *Segment) Len() int {
	return len(s.buf)
}

// Deleted returns the bytes held by tombstoned records.
func (s *Segment) Deleted() uint32 {
	return s.u32(4)
}

func (s *Segment) Sealed() bool {
	return s.sealed
}

// Seal stops further appends and drops spare buffer capacity.
func (s *Segment) Seal() {
	if s.sealed {
		return
	}
	s.sealed = true
	if cap(s.buf) > len(s.buf) {
		s.buf = bytes.Clone(s.buf)
	}
}

// NeedsCompaction reports whether garbage makes up 3/4 of the buffer.
func (s *Segment) NeedsCompaction() bool {
	return uint64(s.Deleted())*4 >= uint64(len(s.buf))*3
}

// RecordCapacity returns the span a record for the given sizes reserves.
func (s *Segment) RecordCapacity(keyLen, valueLen int) (uint32, error) {
	n := uint64(keyLen) + uint64(valueLen) + lengthsSize
	mask := uint64(s.ceil - 1)
	capa := (n + mask) &^ mask
	if capa+capacitySize > math.MaxUint32 || uint64(keyLen) >= tombstone {
		return 0, fmt.Errorf("%w: record of %d+%d bytes", dberrors.ErrCapacityOverflow, keyLen, valueLen)
	}
	return uint32(capa), nil
}

// Append writes a new record at the tail and returns its offset.
func (s *Segment) Append(key, value []byte) (types.Offset, error) {
	if s.sealed {
		return 0, dberrors.ErrSealed
	}

	capa, err := s.RecordCapacity(len(key), len(value))
	if err != nil {
		return 0, err
	}

	pos := len(s.buf) - capacitySize
	end := pos + capacitySize + int(capa)
	if uint64(end)+capacitySize > math.MaxUint32 {
		return 0, fmt.Errorf("%w: segment would exceed %d bytes", dberrors.ErrCapacityOverflow, uint32(math.MaxUint32))
	}

	s.buf = slices.Grow(s.buf, end+capacitySize-len(s.buf))[:end+capacitySize]
	clear(s.buf[pos:])

	s.putU32(pos, capa)
	s.putU32(pos+4, uint32(len(key)))
	copy(s.buf[pos+8:], key)
	vpos := pos + 8 + len(key)
	s.putU32(vpos, uint32(len(value)))
	copy(s.buf[vpos+4:], value)

	return types.Offset(pos), nil
}

// Match compares the key stored at off with key. It never succeeds on a
// tombstone or on an offset outside the record chain.
func (s *Segment) Match(off types.Offset, key []byte) (int, bool) {
	pos, capa, ok := s.record(off)
	if !ok {
		return 0, false
	}

	klen := s.u32(pos + 4)
	if klen == tombstone || int(klen) != len(key) {
		return 0, false
	}
	if uint64(klen)+lengthsSize > uint64(capa) {
		return 0, false
	}
	if !bytes.Equal(s.buf[pos+8:pos+8+int(klen)], key) {
		return 0, false
	}

	return int(klen), true
}

// Fetch returns the value stored for key at off. The slice aliases the
// segment buffer.
func (s *Segment) Fetch(off types.Offset, key []byte) ([]byte, Status) {
	klen, ok := s.Match(off, key)
	if !ok {
		return nil, Absent
	}
	return s.valueAt(int(off), klen), Found
}

// Update rewrites the value at off in place. It reports DoesNotFit when the
// new record would need more than the reserved capacity or would leave more
// than a quarter of it unused.
func (s *Segment) Update(off types.Offset, key, value []byte) Status {
	klen, ok := s.Match(off, key)
	if !ok {
		return Absent
	}

	pos := int(off)
	capa := s.u32(pos)
	need, err := s.RecordCapacity(klen, len(value))
	if err != nil || need > capa || uint64(need)*4 <= uint64(capa)*3 {
		return DoesNotFit
	}

	vpos := pos + 8 + klen
	s.putU32(vpos, uint32(len(value)))
	copy(s.buf[vpos+4:], value)
	clear(s.buf[vpos+4+len(value) : pos+capacitySize+int(capa)])

	return Updated
}

// Tombstone marks the record at off deleted.
func (s *Segment) Tombstone(off types.Offset) error {
	pos, capa, ok := s.record(off)
	if !ok {
		return fmt.Errorf("%w: no record at offset %d", dberrors.ErrInvalidArgument, off)
	}
	if s.u32(pos+4) == tombstone {
		return fmt.Errorf("%w: record at offset %d already deleted", dberrors.ErrInvalidArgument, off)
	}

	s.putU32(pos+4, tombstone)
	s.putU32(4, s.Deleted()+capa+capacitySize)
	return nil
}

// ForEach visits live records in storage order. The segment must not be
// mutated during the walk.
func (s *Segment) ForEach(visit func(off types.Offset, key, value []byte)) {
	for c := s.Cursor(); c.Valid(); c.Next() {
		visit(c.Offset(), c.Key(), c.Value())
	}
}

// ForEachLocation is ForEach without the values.
func (s *Segment) ForEachLocation(visit func(off types.Offset, key []byte)) {
	for c := s.Cursor(); c.Valid(); c.Next() {
		visit(c.Offset(), c.Key())
	}
}

// record validates off and returns the record position and capacity.
func (s *Segment) record(off types.Offset) (int, uint32, bool) {
	pos := int(off)
	tail := len(s.buf) - capacitySize
	if pos < HeaderSize || pos+capacitySize+lengthsSize > tail {
		return 0, 0, false
	}

	capa := s.u32(pos)
	if capa < lengthsSize || pos+capacitySize+int(capa) > tail {
		return 0, 0, false
	}

	return pos, capa, true
}

func (s *Segment) valueAt(pos, klen int) []byte {
	vpos := pos + 8 + klen
	vlen := int(s.u32(vpos))
	start := vpos + 4
	return s.buf[start : start+vlen : start+vlen]
}

func (s *Segment) u32(pos int) uint32 {
	return binary.LittleEndian.Uint32(s.buf[pos : pos+4])
}

func (s *Segment) putU32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(s.buf[pos:pos+4], v)
}
