package domain

// Frame layout on the wire:
//
//	MARKER (4 bytes) | LENGTH (uint32 big-endian, counts itself) | PAYLOAD (LENGTH-4 bytes)
//
// A frame is only valid when LENGTH > LengthFieldSize.
const (
	// LengthFieldSize is the size of the big-endian length word.
	LengthFieldSize = 4

	// DefaultMaxRecordSize caps the LENGTH field. Larger values are
	// treated as corruption.
	DefaultMaxRecordSize = 16 << 20
)

// Marker is the fixed start word preceding every frame.
var Marker = [4]byte{0x1a, 0xcf, 0xfc, 0x1d}

// FrameInfo describes where a frame was found in its stream.
type FrameInfo struct {
	// Offset is the absolute stream offset of the LENGTH field.
	Offset int64

	// Length is the raw LENGTH value (length field plus payload).
	Length uint32
}
