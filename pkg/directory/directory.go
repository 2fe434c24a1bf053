// Package directory implements the open-addressing index of the store. It
// maps a 64-bit key hash to the location of a record and stores no key or
// value bytes itself, only fingerprints and locations packed into 8-byte
// slots.
//
// Probing starts at hash&(capacity-1) and advances by an odd step derived
// from the hash, so with a power-of-two capacity a probe sequence visits every
// slot exactly once. A slot's collision flag records that some key probed past
// it; a lookup that reaches a slot without the flag can stop.
//
// Growth is a single stop-the-world rebuild into a table twice the size. It
// costs O(n) at once, which the single-threaded store accepts in exchange for
// never carrying two tables.
package directory

import (
	"fmt"

	"memkv/pkg/dberrors"
)

const (
	MinCapacity = 2
	MaxCapacity = 1 << 30
)

// Verdict tells InsertOrUpdate what happened to a fingerprint match.
type Verdict uint8

const (
	// Continue: the record holds another key; keep probing.
	Continue Verdict = iota
	// Stop: the record was updated in place.
	Stop
	// Claim: the record was retired; reuse its slot for the new location.
	Claim
)

type Directory struct {
	slots    []slot
	mask     uint64
	occupied int
}

func New(capacity int) (*Directory, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}

	return &Directory{
		slots: make([]slot, capacity),
		mask:  uint64(capacity - 1),
	}, nil
}

func checkCapacity(capacity int) error {
	if capacity > MaxCapacity {
		return fmt.Errorf("%w: directory capacity %d", dberrors.ErrCapacityOverflow, capacity)
	}
	if capacity < MinCapacity || capacity&(capacity-1) != 0 {
		return fmt.Errorf("%w: directory capacity %d is not a power of two >= %d", dberrors.ErrInvalidArgument, capacity, MinCapacity)
	}
	return nil
}

func (d *Directory) Capacity() int {
	return len(d.slots)
}

// Occupied counts slots that have ever been assigned a location.
func (d *Directory) Occupied() int {
	return d.occupied
}

// NeedsGrowth reports whether occupied slots exceed three quarters of the
// capacity.
func (d *Directory) NeedsGrowth() bool {
	return d.occupied*4 > len(d.slots)*3
}

func (d *Directory) Home(h uint64) uint64 {
	return h & d.mask
}

// Step is always odd.
func (d *Directory) Step(h uint64) uint64 {
	half := uint64(len(d.slots)) / 2
	return ((h % half) * 2) | 1
}

// probe calls visit on each slot of the sequence for h until visit returns
// false or every slot has been seen once.
func (d *Directory) probe(h uint64, visit func(i uint64) bool) {
	i, step := d.Home(h), d.Step(h)
	for n := 0; n < len(d.slots); n++ {
		if !visit(i) {
			return
		}
		i = (i + step) & d.mask
	}
}

// InsertOrUpdate walks the probe sequence of h looking for the key's slot.
// Fingerprint matches are handed to resolve. Occupied slots that turn out to
// belong to other keys get their collision flag set.
//
// It returns the slot the caller must fill through Assign and true, or false
// when resolve updated the record in place. Empty slots already flagged as
// collisions are remembered but probing continues past them, since the key
// may live further down the sequence.
func (d *Directory) InsertOrUpdate(h uint64, resolve func(loc Location) Verdict) (uint64, bool, error) {
	var (
		fp       = Fingerprint(h)
		free     uint64
		haveFree bool
		updated  bool
	)

	d.probe(h, func(i uint64) bool {
		s := d.slots[i]
		if s.empty() {
			if !haveFree {
				free, haveFree = i, true
			}
			return s.collision()
		}

		if s.fingerprint() == fp {
			switch resolve(s.location()) {
			case Stop:
				updated = true
				return false
			case Claim:
				free, haveFree = i, true
				return false
			}
		}

		d.slots[i] = d.slots[i].withCollision()
		return true
	})

	switch {
	case updated:
		return 0, false, nil
	case haveFree:
		return free, true, nil
	default:
		return 0, false, fmt.Errorf("%w: no free slot among %d", dberrors.ErrDirectoryCorrupt, len(d.slots))
	}
}

// Assign stores loc with the fingerprint of h into slot i, keeping the
// slot's collision flag. It reports whether the slot was previously unused.
func (d *Directory) Assign(i, h uint64, loc Location) (bool, error) {
	if loc.Offset == 0 || loc.Offset > MaxOffset {
		return false, fmt.Errorf("%w: record offset %d not addressable", dberrors.ErrCapacityOverflow, loc.Offset)
	}
	if i >= uint64(len(d.slots)) {
		return false, fmt.Errorf("%w: slot %d out of range", dberrors.ErrInvalidArgument, i)
	}

	s := d.slots[i]
	fresh := s.empty()
	d.slots[i] = makeSlot(Fingerprint(h), s.collision(), loc)
	if fresh {
		d.occupied++
	}
	return fresh, nil
}

// Lookup walks the probe sequence of h, offering each fingerprint match to
// match, and stops at the first slot no other key has probed past.
func (d *Directory) Lookup(h uint64, match func(loc Location) bool) bool {
	fp := Fingerprint(h)
	found := false

	d.probe(h, func(i uint64) bool {
		s := d.slots[i]
		if !s.empty() && s.fingerprint() == fp && match(s.location()) {
			found = true
			return false
		}
		return s.collision()
	})

	return found
}

// Relocate rewrites the slot in h's probe sequence that points at from so it
// points at to.
func (d *Directory) Relocate(h uint64, from, to Location) (bool, error) {
	if to.Offset == 0 || to.Offset > MaxOffset {
		return false, fmt.Errorf("%w: record offset %d not addressable", dberrors.ErrCapacityOverflow, to.Offset)
	}

	moved := false
	d.probe(h, func(i uint64) bool {
		s := d.slots[i]
		if !s.empty() && s.location() == from {
			d.slots[i] = s.withLocation(to)
			moved = true
			return false
		}
		return s.collision()
	})

	return moved, nil
}

// Rehash rebuilds the directory at capacity from the live entries source
// yields. Keys are known to be distinct, so no fingerprint comparison is
// done; collision flags are set along each probe exactly as on insertion.
// Slots of retired records are dropped.
func (d *Directory) Rehash(capacity int, source func(visit func(h uint64, loc Location))) error {
	if err := checkCapacity(capacity); err != nil {
		return err
	}

	next := &Directory{
		slots: make([]slot, capacity),
		mask:  uint64(capacity - 1),
	}

	var err error
	source(func(h uint64, loc Location) {
		if err != nil {
			return
		}
		if !next.place(h, loc) {
			err = fmt.Errorf("%w: %d entries do not fit %d slots", dberrors.ErrCapacityOverflow, next.occupied+1, capacity)
		}
	})
	if err != nil {
		return err
	}

	*d = *next
	return nil
}

// Grow doubles the capacity.
func (d *Directory) Grow(source func(visit func(h uint64, loc Location))) error {
	if len(d.slots) >= MaxCapacity {
		return fmt.Errorf("%w: directory already at %d slots", dberrors.ErrCapacityOverflow, len(d.slots))
	}
	return d.Rehash(len(d.slots)*2, source)
}

func (d *Directory) place(h uint64, loc Location) bool {
	fp := Fingerprint(h)
	placed := false

	d.probe(h, func(i uint64) bool {
		s := d.slots[i]
		if s.empty() {
			d.slots[i] = makeSlot(fp, s.collision(), loc)
			d.occupied++
			placed = true
			return false
		}
		d.slots[i] = s.withCollision()
		return true
	})

	return placed
}
