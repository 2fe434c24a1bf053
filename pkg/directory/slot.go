package directory

import "memkv/pkg/types"

// slot layout, low to high bits:
//
//	0-6    fingerprint
//	7      collision flag
//	8-31   record offset, 0 when the slot was never used
//	32-63  segment id
type slot uint64

const (
	fingerprintBits = 7
	fingerprintMask = 1<<fingerprintBits - 1
	collisionBit    = 1 << fingerprintBits
	offsetShift     = 8
	offsetMask      = 1<<24 - 1
	segmentShift    = 32

	// MaxOffset is the largest record offset a slot can address.
	MaxOffset = offsetMask
)

// Location addresses a record: the segment holding it and its offset there.
type Location struct {
	Segment types.SegmentID
	Offset  types.Offset
}

// Fingerprint returns the 7 hash bits kept in a slot. They come from the top
// of the hash so they stay independent of the home slot, which uses the
// bottom bits.
func Fingerprint(h uint64) uint8 {
	return uint8(h >> (64 - fingerprintBits))
}

func makeSlot(fp uint8, collision bool, loc Location) slot {
	s := slot(fp&fingerprintMask) |
		slot(loc.Offset&offsetMask)<<offsetShift |
		slot(loc.Segment)<<segmentShift
	if collision {
		s |= collisionBit
	}
	return s
}

func (s slot) fingerprint() uint8 {
	return uint8(s & fingerprintMask)
}

func (s slot) collision() bool {
	return s&collisionBit != 0
}

func (s slot) empty() bool {
	return (s>>offsetShift)&offsetMask == 0
}

func (s slot) location() Location {
	return Location{
		Segment: types.SegmentID(s >> segmentShift),
		Offset:  types.Offset((s >> offsetShift) & offsetMask),
	}
}

func (s slot) withCollision() slot {
	return s | collisionBit
}

func (s slot) withLocation(loc Location) slot {
	return makeSlot(s.fingerprint(), s.collision(), loc)
}
