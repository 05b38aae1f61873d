// Package channel models the boundary between the conversation host and the
// tool-serving peer as a two-party, message-oriented link. Both sides run in
// the same process today, but the link behaves like an RPC transport —
// asynchronous delivery, FIFO ordering, request/response matching — so tool
// execution can move out-of-process without touching the host's state
// machine.
package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed reports a send or receive after either side closed.
var ErrChannelClosed = errors.New("channel closed")

const endpointQueueDepth = 64

// Endpoint is one side of an in-memory duplex link. Messages sent on one
// side are delivered to the other side's receiver asynchronously and in send
// order; they are never handed over within the sender's call stack.
type Endpoint struct {
	peer *Endpoint

	inbox chan []byte
	done  chan struct{}
	once  *sync.Once
}

// NewPair creates two connected endpoints. Closing either side is terminal
// for both.
func NewPair() (*Endpoint, *Endpoint) {
	done := make(chan struct{})
	once := &sync.Once{}
	a := &Endpoint{inbox: make(chan []byte, endpointQueueDepth), done: done, once: once}
	b := &Endpoint{inbox: make(chan []byte, endpointQueueDepth), done: done, once: once}
	a.peer, b.peer = b, a
	return a, b
}

// Send queues the payload for the peer. It fails with ErrChannelClosed once
// either side has closed.
func (e *Endpoint) Send(ctx context.Context, payload []byte) error {
	// Copy so the sender may reuse its buffer.
	msg := make([]byte, len(payload))
	copy(msg, payload)

	select {
	case <-e.done:
		return ErrChannelClosed
	default:
	}

	select {
	case e.peer.inbox <- msg:
		return nil
	case <-e.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message arrives, the channel closes, or the context
// is done.
func (e *Endpoint) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-e.inbox:
		return msg, nil
	case <-e.done:
		// Drain anything already queued before reporting closure.
		select {
		case msg := <-e.inbox:
			return msg, nil
		default:
			return nil, ErrChannelClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close terminates the link for both sides. Close is idempotent.
func (e *Endpoint) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

// Closed reports whether the link has been terminated.
func (e *Endpoint) Closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
