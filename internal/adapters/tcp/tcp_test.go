package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/internal/domain"
)

func TestAcceptor_ReadsConnection(t *testing.T) {
	a, err := Listen("127.0.0.1:0", 4)
	require.NoError(t, err)
	defer a.Close()

	go func() {
		conn, err := net.Dial("tcp", a.Addr().String())
		if err != nil {
			return
		}
		conn.Write([]byte("0123456789"))
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src, err := a.Accept(ctx)
	require.NoError(t, err)
	defer src.Close()
	assert.Contains(t, src.Name(), "tcp:127.0.0.1:")

	var got []byte
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(chunk), 4)
		got = append(got, chunk...)
	}
	assert.Equal(t, "0123456789", string(got))
}

func TestAcceptor_Close(t *testing.T) {
	a, err := Listen("127.0.0.1:0", 0)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := a.Accept(context.Background())
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, domain.ErrAcceptorClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Accept did not return after Close")
	}
}

func TestConnSource_CancelUnblocksRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	src := NewConnSource(server, 0)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := src.Next(ctx)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

func TestConnSource_ChunksAreRightSized(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	src := NewConnSource(server, 64<<10)
	defer src.Close()

	const writes = 100
	go func() {
		for i := 0; i < writes; i++ {
			if _, err := client.Write([]byte{byte(i)}); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chunks := make([][]byte, 0, writes)
	pinned := 0
	for len(chunks) < writes {
		chunk, err := src.Next(ctx)
		require.NoError(t, err)
		require.Len(t, chunk, 1)
		assert.Equal(t, len(chunk), cap(chunk))
		pinned += cap(chunk)
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, writes, pinned)

	// The read buffer is reused; earlier chunks must not change.
	for i, c := range chunks {
		assert.Equal(t, byte(i), c[0])
	}
}
