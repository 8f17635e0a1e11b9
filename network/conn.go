// Package network provides the transport abstraction under a session: a
// frame-oriented connection over raw TCP or WebSocket.
package network

import (
	"errors"
	"net"

	"github.com/ghostnet/ghostserver/protocol"
)

// Frame is one decoded protocol unit.
type Frame struct {
	Op      protocol.OpCode
	Payload []byte
}

// ErrReadTimeout is returned by ReadFrame when no complete frame arrived
// within the read timeout. The caller is expected to run its periodic checks
// and call ReadFrame again.
var ErrReadTimeout = errors.New("read timed out")

// Conn is a frame transport. Send is synchronous and safe for concurrent
// use; ReadFrame must only be called from the session's read loop.
type Conn interface {
	ReadFrame() (*Frame, error)
	Send(op protocol.OpCode, payload []byte) error
	Close() error
	RemoteAddr() net.Addr
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
