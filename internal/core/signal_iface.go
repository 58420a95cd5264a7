package core

import "errors"

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is a raw text payload as received from or sent to a peer.
type Frame []byte

// SignalConnection abstracts the bidirectional messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues f without blocking on network I/O.
	TrySend(Frame) error
	Close()
}
