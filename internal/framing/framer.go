package framing

import (
	"fmt"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/ports"
)

const markerLen = len(domain.Marker)

// ErrorKind classifies a FrameError.
type ErrorKind uint8

const (
	// KindFraming is a malformed or oversized length field. The framer
	// resynchronizes by scanning for the next marker.
	KindFraming ErrorKind = iota + 1

	// KindDecode is a complete frame whose payload the decoder rejected.
	// Only that frame is lost.
	KindDecode
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindFraming:
		return "framing"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FrameError reports a recoverable failure at a known stream position.
type FrameError struct {
	Kind   ErrorKind
	Stream string

	// Offset is the absolute stream offset of the length field.
	Offset int64

	// Length is the raw length value read at Offset.
	Length uint32

	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s error on stream %q at offset %d (length %d): %v", e.Kind, e.Stream, e.Offset, e.Length, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Stats counts what a Framer has seen since it was created.
type Stats struct {
	Frames        uint64
	FrameBytes    uint64
	FramingErrors uint64
	DecodeErrors  uint64

	// SkippedBytes counts bytes rejected while searching for a marker.
	SkippedBytes uint64

	// Retained is the number of bytes currently held by the window.
	Retained int
}

// Option configures a Framer.
type Option func(*Framer)

// WithMaxRecordSize overrides the largest accepted length field value.
func WithMaxRecordSize(n uint32) Option {
	return func(f *Framer) {
		if n > domain.LengthFieldSize {
			f.maxRecord = n
		}
	}
}

// WithStreamID sets the stream identity reported in errors.
func WithStreamID(id string) Option {
	return func(f *Framer) {
		f.stream = id
	}
}

// Framer extracts records from a byte stream delivered in arbitrary chunks.
type Framer struct {
	win       Window
	decoder   ports.RecordDecoder
	maxRecord uint32
	stream    string

	// cur is the window offset of the next unchecked byte while searching,
	// and of the length field once aligned.
	cur     int
	aligned bool

	last  domain.FrameInfo
	stats Stats
}

// NewFramer creates a framer that hands payloads to decoder.
func NewFramer(decoder ports.RecordDecoder, opts ...Option) *Framer {
	f := &Framer{
		decoder:   decoder,
		maxRecord: domain.DefaultMaxRecordSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push appends a chunk. The framer keeps a reference to chunk until every
// byte in it has been consumed; callers must not modify it afterwards.
func (f *Framer) Push(chunk []byte) {
	f.win.Append(chunk)
}

// Next returns the next record. It never blocks.
//
// (nil, nil) means no complete frame is available yet. A *FrameError means
// one frame was lost; the caller should log it and call Next again.
func (f *Framer) Next() (domain.Record, error) {
	rec, err := f.next()
	f.Reclaim()
	return rec, err
}

func (f *Framer) next() (domain.Record, error) {
	if !f.aligned && !f.seekMarker() {
		return nil, nil
	}

	avail := f.win.Len() - f.cur
	if avail < domain.LengthFieldSize {
		return nil, nil
	}

	length := f.win.Uint32At(f.cur)
	offset := f.win.Base() + int64(f.cur)
	if length <= domain.LengthFieldSize || length > f.maxRecord {
		// Drop alignment but keep cur on the length field so the scan
		// resumes there.
		f.aligned = false
		f.stats.FramingErrors++
		return nil, &FrameError{
			Kind:   KindFraming,
			Stream: f.stream,
			Offset: offset,
			Length: length,
			Err:    fmt.Errorf("%w: length %d outside (%d, %d]", domain.ErrProtocol, length, domain.LengthFieldSize, f.maxRecord),
		}
	}
	if avail < int(length) {
		return nil, nil
	}

	payload := f.win.Copy(f.cur+domain.LengthFieldSize, int(length)-domain.LengthFieldSize)
	f.cur += int(length)
	f.aligned = false
	f.last = domain.FrameInfo{Offset: offset, Length: length}

	rec, err := f.decoder.Decode(payload)
	if err != nil {
		f.stats.DecodeErrors++
		return nil, &FrameError{
			Kind:   KindDecode,
			Stream: f.stream,
			Offset: offset,
			Length: length,
			Err:    fmt.Errorf("%w: %v", domain.ErrDecode, err),
		}
	}
	f.stats.Frames++
	f.stats.FrameBytes += uint64(length)
	return rec, nil
}

// seekMarker scans forward from cur. On success cur rests on the length
// field. On failure cur rests on the first position that could still start
// a marker once more bytes arrive.
func (f *Framer) seekMarker() bool {
	last := f.win.Len() - markerLen
	for ; f.cur <= last; f.cur++ {
		if f.markerAt(f.cur) {
			f.cur += markerLen
			f.aligned = true
			return true
		}
		f.stats.SkippedBytes++
	}
	return false
}

func (f *Framer) markerAt(i int) bool {
	for j := 0; j < markerLen; j++ {
		if f.win.ByteAt(i+j) != domain.Marker[j] {
			return false
		}
	}
	return true
}

// Reclaim drops chunks that lie entirely before the read position.
// Next calls it on every return.
func (f *Framer) Reclaim() {
	f.cur -= f.win.Reclaim(f.cur)
}

// Reset releases every retained chunk and forgets any partial frame.
func (f *Framer) Reset() {
	f.win.Release()
	f.cur = 0
	f.aligned = false
}

// LastFrame describes the most recent complete frame, decoded or not.
func (f *Framer) LastFrame() domain.FrameInfo {
	return f.last
}

// Offset returns the absolute stream offset of the read position.
func (f *Framer) Offset() int64 {
	return f.win.Base() + int64(f.cur)
}

// Stats returns a snapshot of the framer's counters.
func (f *Framer) Stats() Stats {
	s := f.stats
	s.Retained = f.win.Len()
	return s
}
