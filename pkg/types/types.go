package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// SegmentID identifies a segment inside a store. Ids are handed out
// sequentially and never reused.
type SegmentID uint32

// Offset is the byte position of a record inside its segment buffer.
type Offset uint32
