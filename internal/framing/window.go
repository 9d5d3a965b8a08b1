package framing

// Window is an ordered list of immutable byte chunks addressed as one
// contiguous range starting at offset zero. Base tracks the absolute stream
// offset of that first byte so callers can report positions after reclaims.
type Window struct {
	chunks [][]byte

	// starts[i] is the window offset of chunks[i][0].
	starts []int
	size   int
	base   int64
}

// Append adds a chunk at the end of the window. Empty chunks are ignored.
// The window keeps a reference to chunk; callers must not modify it.
func (w *Window) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	w.chunks = append(w.chunks, chunk)
	w.starts = append(w.starts, w.size)
	w.size += len(chunk)
}

// Len returns the number of bytes held.
func (w *Window) Len() int {
	return w.size
}

// Base returns the absolute stream offset of window offset zero.
func (w *Window) Base() int64 {
	return w.base
}

// ByteAt returns the byte at window offset i. It panics if i is out of range.
func (w *Window) ByteAt(i int) byte {
	c := w.locate(i)
	return w.chunks[c][i-w.starts[c]]
}

// Copy copies n bytes starting at window offset i into a new slice,
// crossing chunk boundaries as needed.
func (w *Window) Copy(i, n int) []byte {
	if i < 0 || n < 0 || i+n > w.size {
		panic("framing: window copy out of range")
	}
	out := make([]byte, n)
	if n == 0 {
		return out
	}
	c := w.locate(i)
	off := i - w.starts[c]
	for written := 0; written < n; c++ {
		written += copy(out[written:], w.chunks[c][off:])
		off = 0
	}
	return out
}

// Uint32At decodes a big-endian uint32 at window offset i.
func (w *Window) Uint32At(i int) uint32 {
	return uint32(w.ByteAt(i))<<24 | uint32(w.ByteAt(i+1))<<16 | uint32(w.ByteAt(i+2))<<8 | uint32(w.ByteAt(i+3))
}

// Reclaim drops every chunk lying entirely before window offset upTo and
// returns how many bytes were dropped. Remaining offsets shift down by that
// amount.
func (w *Window) Reclaim(upTo int) int {
	n := 0
	for n < len(w.chunks) && w.starts[n]+len(w.chunks[n]) <= upTo {
		n++
	}
	if n == 0 {
		return 0
	}
	dropped := w.starts[n-1] + len(w.chunks[n-1])

	// Shift rather than reslice so the dropped chunks are not pinned by the
	// backing array.
	k := copy(w.chunks, w.chunks[n:])
	clear(w.chunks[k:])
	w.chunks = w.chunks[:k]
	for j := 0; j < k; j++ {
		w.starts[j] = w.starts[j+n] - dropped
	}
	w.starts = w.starts[:k]

	w.size -= dropped
	w.base += int64(dropped)
	return dropped
}

// Release drops all chunks. The absolute base advances past them.
func (w *Window) Release() {
	w.base += int64(w.size)
	clear(w.chunks)
	w.chunks = w.chunks[:0]
	w.starts = w.starts[:0]
	w.size = 0
}

// Chunks returns the number of chunks retained.
func (w *Window) Chunks() int {
	return len(w.chunks)
}

// locate finds the chunk holding window offset i with a linear scan. The
// window is reclaimed after every frame, so it rarely holds more than a few
// chunks.
func (w *Window) locate(i int) int {
	if i < 0 || i >= w.size {
		panic("framing: window offset out of range")
	}
	for c := len(w.starts) - 1; c > 0; c-- {
		if w.starts[c] <= i {
			return c
		}
	}
	return 0
}
