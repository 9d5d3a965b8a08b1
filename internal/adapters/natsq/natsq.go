// Package natsq reads telemetry bytes from NATS subjects. Each subject is
// one stream; message bodies are chunks in publish order.
package natsq

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/ports"
)

// DefaultPending is the per-subject message buffer.
const DefaultPending = 1024

// Connect dials url with reconnect handling that logs through logger.
func Connect(url, name string, logger ports.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", ports.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", ports.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats error", ports.String("subject", subject), ports.Err(err))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Acceptor hands out one Source per configured subject, then blocks until
// closed.
type Acceptor struct {
	nc       *nats.Conn
	subjects []string
	pending  int

	mu     sync.Mutex
	next   int
	closed chan struct{}
	once   sync.Once
}

// NewAcceptor creates an acceptor over an established connection.
func NewAcceptor(nc *nats.Conn, subjects []string, pending int) *Acceptor {
	if pending <= 0 {
		pending = DefaultPending
	}
	return &Acceptor{nc: nc, subjects: subjects, pending: pending, closed: make(chan struct{})}
}

// Accept subscribes to the next subject. Once every subject has a source it
// blocks until ctx is done or Close is called.
func (a *Acceptor) Accept(ctx context.Context) (ports.ChunkSource, error) {
	a.mu.Lock()
	if a.next < len(a.subjects) {
		subject := a.subjects[a.next]
		a.next++
		a.mu.Unlock()

		ch := make(chan *nats.Msg, a.pending)
		sub, err := a.nc.ChanSubscribe(subject, ch)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		src := NewSource(subject, ch, sub.Unsubscribe)
		src.dropped = sub.Dropped
		return src, nil
	}
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.closed:
		return nil, domain.ErrAcceptorClosed
	}
}

// Close stops accepting. Existing sources stay open until closed.
func (a *Acceptor) Close() error {
	a.once.Do(func() { close(a.closed) })
	return nil
}

// Source delivers message bodies from one subject. It implements
// ports.ChunkSource and ports.LossReporter.
type Source struct {
	subject string
	msgs    <-chan *nats.Msg
	unsub   func() error

	// dropped reports slow consumer drops of the subscription.
	dropped     func() (int, error)
	lastDropped atomic.Uint64

	done chan struct{}
	once sync.Once
}

// NewSource wraps a message channel. unsub is called once by Close; it may
// be nil.
func NewSource(subject string, msgs <-chan *nats.Msg, unsub func() error) *Source {
	return &Source{subject: subject, msgs: msgs, unsub: unsub, done: make(chan struct{})}
}

// Name implements ports.ChunkSource.
func (s *Source) Name() string {
	return "nats:" + s.subject
}

// Next returns the next message body. It returns io.EOF once the channel is
// closed or Close was called.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, io.EOF
		case msg, ok := <-s.msgs:
			if !ok {
				return nil, io.EOF
			}
			if len(msg.Data) == 0 {
				continue
			}
			return msg.Data, nil
		}
	}
}

// Dropped returns how many messages NATS discarded because the pending
// buffer was full. After unsubscribing it keeps the last known count.
func (s *Source) Dropped() uint64 {
	if s.dropped == nil {
		return 0
	}
	n, err := s.dropped()
	if err != nil || n < 0 {
		return s.lastDropped.Load()
	}
	s.lastDropped.Store(uint64(n))
	return uint64(n)
}

// Close unsubscribes and unblocks Next.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.unsub != nil {
			err = s.unsub()
		}
	})
	return err
}
