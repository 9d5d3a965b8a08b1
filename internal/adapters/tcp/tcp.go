// Package tcp accepts telemetry producers over TCP. Every accepted
// connection becomes one ports.ChunkSource.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/ports"
)

// DefaultReadSize is the buffer size of one read when none is given.
const DefaultReadSize = 32 << 10

// Acceptor implements ports.SourceAcceptor over a net.Listener.
type Acceptor struct {
	ln       net.Listener
	readSize int
}

// Listen binds addr and returns an acceptor. A non-positive readSize
// selects DefaultReadSize.
func Listen(addr string, readSize int) (*Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return NewAcceptor(ln, readSize), nil
}

// NewAcceptor wraps an existing listener.
func NewAcceptor(ln net.Listener, readSize int) *Acceptor {
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	return &Acceptor{ln: ln, readSize: readSize}
}

// Addr returns the listening address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Accept waits for the next connection. Cancelling ctx closes the listener.
func (a *Acceptor) Accept(ctx context.Context) (ports.ChunkSource, error) {
	stop := context.AfterFunc(ctx, func() { a.ln.Close() })
	defer stop()

	conn, err := a.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, domain.ErrAcceptorClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return NewConnSource(conn, a.readSize), nil
}

// Close stops accepting.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}

// ConnSource reads one connection. It implements ports.ChunkSource.
type ConnSource struct {
	conn net.Conn
	buf  []byte
	name string
}

// NewConnSource wraps conn.
func NewConnSource(conn net.Conn, readSize int) *ConnSource {
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	return &ConnSource{conn: conn, buf: make([]byte, readSize), name: "tcp:" + conn.RemoteAddr().String()}
}

// Name implements ports.ChunkSource.
func (c *ConnSource) Name() string {
	return c.name
}

// Next blocks on one read. Every chunk is a fresh slice sized to the bytes
// read, so a trickling producer cannot pin a full read buffer per chunk.
// Cancelling ctx interrupts the read. Next must not be called concurrently.
func (c *ConnSource) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, c.buf)
		return chunk, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, io.EOF
	}
	return nil, err
}

// Close implements ports.ChunkSource.
func (c *ConnSource) Close() error {
	return c.conn.Close()
}
