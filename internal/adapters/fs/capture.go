// Package fs provides a ports.ChunkSource that replays a capture file.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the read size used when none is given.
const DefaultChunkSize = 64 << 10

// FileSource reads a capture file in fixed-size chunks. It implements
// ports.ChunkSource.
type FileSource struct {
	f         *os.File
	name      string
	chunkSize int
}

// Open opens path for replay. A non-positive chunkSize selects
// DefaultChunkSize.
func Open(path string, chunkSize int) (*FileSource, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return &FileSource{f: f, name: "file:" + filepath.Base(path), chunkSize: chunkSize}, nil
}

// Name implements ports.ChunkSource.
func (s *FileSource) Name() string {
	return s.name
}

// Next returns the next chunk, or io.EOF at the end of the file.
func (s *FileSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.f, buf)
	if n > 0 {
		return buf[:n], nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return nil, err
}

// Close implements ports.ChunkSource.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// WriteCapture writes data to path atomically: it writes a temp file and
// renames it into place.
func WriteCapture(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
