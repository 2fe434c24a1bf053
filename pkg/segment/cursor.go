package segment

import "memkv/pkg/types"

// Cursor is a one-shot forward walk over the live records of a segment.
// Tombstones are skipped through their preserved capacity field.
type Cursor struct {
	seg   *Segment
	pos   int
	key   []byte
	value []byte
	valid bool
}

// Cursor returns a cursor positioned on the first live record.
func (s *Segment) Cursor() *Cursor {
	c := &Cursor{seg: s}
	c.First()
	return c
}

// First rewinds to the record right after the header.
func (c *Cursor) First() {
	c.pos = HeaderSize
	c.settle()
}

func (c *Cursor) Next() {
	if !c.valid {
		return
	}
	c.pos += capacitySize + int(c.seg.u32(c.pos))
	c.settle()
}

func (c *Cursor) Valid() bool {
	return c.valid
}

func (c *Cursor) Offset() types.Offset {
	return types.Offset(c.pos)
}

func (c *Cursor) Key() types.Key {
	return c.key
}

func (c *Cursor) Value() types.Value {
	return c.value
}

// settle moves forward from pos to the first live record, if any.
func (c *Cursor) settle() {
	s := c.seg
	tail := len(s.buf) - capacitySize
	for c.pos < tail {
		capa := s.u32(c.pos)
		if capa == 0 {
			break
		}
		if klen := s.u32(c.pos + 4); klen != tombstone {
			k := int(klen)
			c.key = s.buf[c.pos+8 : c.pos+8+k : c.pos+8+k]
			c.value = s.valueAt(c.pos, k)
			c.valid = true
			return
		}
		c.pos += capacitySize + int(capa)
	}

	c.key, c.value, c.valid = nil, nil, false
}
