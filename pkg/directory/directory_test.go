package directory

import (
	"errors"
	"testing"

	"memkv/pkg/dberrors"
	"memkv/pkg/types"
)

// table is a stand-in for the store: it remembers which hash lives where.
type table struct {
	dir  *Directory
	next types.Offset
	keys map[Location]uint64
}

func newTable(t *testing.T, capacity int) *table {
	t.Helper()

	dir, err := New(capacity)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &table{dir: dir, next: 8, keys: make(map[Location]uint64)}
}

func (tb *table) insert(t *testing.T, h uint64) Location {
	t.Helper()

	i, claim, err := tb.dir.InsertOrUpdate(h, func(loc Location) Verdict {
		if tb.keys[loc] == h {
			return Stop
		}
		return Continue
	})
	if err != nil {
		t.Fatalf("InsertOrUpdate failed: %v", err)
	}
	if !claim {
		return Location{}
	}

	loc := Location{Segment: 1, Offset: tb.next}
	tb.next += 16
	if _, err := tb.dir.Assign(i, h, loc); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	tb.keys[loc] = h
	return loc
}

func (tb *table) lookup(h uint64) bool {
	return tb.dir.Lookup(h, func(loc Location) bool {
		return tb.keys[loc] == h
	})
}

func (tb *table) source(visit func(h uint64, loc Location)) {
	for loc, h := range tb.keys {
		visit(h, loc)
	}
}

func TestDirectory_New(t *testing.T) {
	for _, capacity := range []int{0, 1, 3, 12} {
		if _, err := New(capacity); !errors.Is(err, dberrors.ErrInvalidArgument) {
			t.Fatalf("New(%d): expected ErrInvalidArgument, got %v", capacity, err)
		}
	}
	if _, err := New(MaxCapacity * 2); !errors.Is(err, dberrors.ErrCapacityOverflow) {
		t.Fatalf("Expected ErrCapacityOverflow, got %v", err)
	}
}

func TestDirectory_ProbeVisitsEverySlot(t *testing.T) {
	for _, capacity := range []int{2, 16, 64} {
		dir, err := New(capacity)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		for _, h := range []uint64{0, 1, 7, 12345, 0xdeadbeefcafebabe} {
			if dir.Step(h)%2 != 1 {
				t.Fatalf("Step(%d) = %d is even", h, dir.Step(h))
			}

			seen := make(map[uint64]bool)
			dir.probe(h, func(i uint64) bool {
				if seen[i] {
					t.Fatalf("capacity %d hash %d: slot %d visited twice", capacity, h, i)
				}
				seen[i] = true
				return true
			})
			if len(seen) != capacity {
				t.Fatalf("capacity %d hash %d: visited %d slots", capacity, h, len(seen))
			}
		}
	}
}

func TestDirectory_HomeAndStep(t *testing.T) {
	dir, _ := New(16)

	h := uint64(0x1234_5678_9abc_def3)
	if dir.Home(h) != 3 {
		t.Fatalf("Expected home 3, got %d", dir.Home(h))
	}
	// h mod 8 = 3 -> step 7
	if dir.Step(h) != 7 {
		t.Fatalf("Expected step 7, got %d", dir.Step(h))
	}
}

func TestDirectory_InsertLookup(t *testing.T) {
	tb := newTable(t, 16)

	hashes := []uint64{1, 17, 33, 2, 0xff00000000000001}
	for _, h := range hashes {
		tb.insert(t, h)
	}

	if tb.dir.Occupied() != len(hashes) {
		t.Fatalf("Expected %d occupied slots, got %d", len(hashes), tb.dir.Occupied())
	}
	for _, h := range hashes {
		if !tb.lookup(h) {
			t.Fatalf("Hash %x not found", h)
		}
	}
	if tb.lookup(49) {
		t.Fatal("Unexpected hit for absent hash")
	}
}

func TestDirectory_CollisionFlag(t *testing.T) {
	tb := newTable(t, 16)

	// Same home slot and fingerprint: identical probe sequences.
	first := tb.insert(t, 5)
	tb.insert(t, 21)

	home := tb.dir.slots[5]
	if !home.collision() {
		t.Fatal("Expected home slot to be flagged after second insert")
	}
	if home.location() != first {
		t.Fatalf("Home slot must keep the first location, got %+v", home.location())
	}

	next := tb.dir.slots[(5+tb.dir.Step(21))&15]
	if next.empty() || next.collision() {
		t.Fatal("Expected second key in the next probe slot without flag")
	}
}

func TestDirectory_UpdateInPlace(t *testing.T) {
	tb := newTable(t, 16)
	tb.insert(t, 9)

	if loc := tb.insert(t, 9); loc != (Location{}) {
		t.Fatalf("Expected in-place update, got new location %+v", loc)
	}
	if tb.dir.Occupied() != 1 {
		t.Fatalf("Expected 1 occupied slot, got %d", tb.dir.Occupied())
	}
}

func TestDirectory_Claim(t *testing.T) {
	tb := newTable(t, 16)
	old := tb.insert(t, 9)

	i, claim, err := tb.dir.InsertOrUpdate(9, func(loc Location) Verdict {
		if loc != old {
			t.Fatalf("Unexpected location %+v", loc)
		}
		return Claim
	})
	if err != nil || !claim {
		t.Fatalf("Expected claim, got %v %v", claim, err)
	}
	if i != 9 {
		t.Fatalf("Expected slot 9 to be reused, got %d", i)
	}

	fresh, err := tb.dir.Assign(i, 9, Location{Segment: 2, Offset: 8})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if fresh {
		t.Fatal("Claimed slot was not fresh")
	}
	if tb.dir.Occupied() != 1 {
		t.Fatalf("Expected occupancy to stay 1, got %d", tb.dir.Occupied())
	}
}

func TestDirectory_LookupStopsAtUnflaggedSlot(t *testing.T) {
	tb := newTable(t, 16)
	tb.insert(t, 3)

	calls := 0
	tb.dir.Lookup(19, func(Location) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Fatalf("Expected probe to stop after the unflagged home slot, got %d calls", calls)
	}
}

func TestDirectory_Relocate(t *testing.T) {
	tb := newTable(t, 16)
	tb.insert(t, 4)
	old := tb.insert(t, 20)

	to := Location{Segment: 7, Offset: 64}
	moved, err := tb.dir.Relocate(20, old, to)
	if err != nil || !moved {
		t.Fatalf("Relocate failed: %v %v", moved, err)
	}
	delete(tb.keys, old)
	tb.keys[to] = 20

	if !tb.lookup(20) {
		t.Fatal("Relocated entry not found")
	}

	moved, _ = tb.dir.Relocate(20, old, to)
	if moved {
		t.Fatal("Stale location must not be found twice")
	}

	if _, err := tb.dir.Relocate(20, to, Location{Segment: 1, Offset: MaxOffset + 1}); !errors.Is(err, dberrors.ErrCapacityOverflow) {
		t.Fatalf("Expected ErrCapacityOverflow, got %v", err)
	}
}

func TestDirectory_Grow(t *testing.T) {
	tb := newTable(t, 16)

	inserted := 0
	for h := uint64(1); !tb.dir.NeedsGrowth(); h++ {
		tb.insert(t, h*0x9e3779b97f4a7c15)
		inserted++
	}
	if inserted != 13 {
		t.Fatalf("Expected growth after 13 entries, got %d", inserted)
	}

	if err := tb.dir.Grow(tb.source); err != nil {
		t.Fatalf("Grow failed: %v", err)
	}
	if tb.dir.Capacity() != 32 {
		t.Fatalf("Expected capacity 32, got %d", tb.dir.Capacity())
	}
	if tb.dir.Occupied() != inserted {
		t.Fatalf("Expected %d occupied after rehash, got %d", inserted, tb.dir.Occupied())
	}
	for _, h := range tb.keys {
		if !tb.lookup(h) {
			t.Fatalf("Hash %x lost in rehash", h)
		}
	}
}

func TestDirectory_RehashTooSmall(t *testing.T) {
	tb := newTable(t, 16)
	for h := uint64(0); h < 5; h++ {
		tb.insert(t, h)
	}

	err := tb.dir.Rehash(4, tb.source)
	if !errors.Is(err, dberrors.ErrCapacityOverflow) {
		t.Fatalf("Expected ErrCapacityOverflow, got %v", err)
	}
	if tb.dir.Capacity() != 16 {
		t.Fatal("Failed rehash must leave the directory untouched")
	}
}

func TestDirectory_AssignRejectsUnaddressable(t *testing.T) {
	dir, _ := New(4)

	if _, err := dir.Assign(0, 1, Location{Segment: 1, Offset: 0}); !errors.Is(err, dberrors.ErrCapacityOverflow) {
		t.Fatalf("Expected ErrCapacityOverflow for offset 0, got %v", err)
	}
	if _, err := dir.Assign(0, 1, Location{Segment: 1, Offset: MaxOffset + 1}); !errors.Is(err, dberrors.ErrCapacityOverflow) {
		t.Fatalf("Expected ErrCapacityOverflow, got %v", err)
	}
	if _, err := dir.Assign(9, 1, Location{Segment: 1, Offset: 8}); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestSlot_Encoding(t *testing.T) {
	loc := Location{Segment: 0xfffffffe, Offset: MaxOffset}
	s := makeSlot(0x7f, true, loc)

	if s.fingerprint() != 0x7f || !s.collision() || s.location() != loc || s.empty() {
		t.Fatalf("Slot did not keep its fields: %x", uint64(s))
	}

	moved := s.withLocation(Location{Segment: 3, Offset: 8})
	if moved.fingerprint() != 0x7f || !moved.collision() {
		t.Fatal("withLocation must keep fingerprint and collision flag")
	}
	if Fingerprint(0xfe00000000000000) != 0x7f {
		t.Fatalf("Fingerprint must come from the top bits, got %x", Fingerprint(0xfe00000000000000))
	}
}
