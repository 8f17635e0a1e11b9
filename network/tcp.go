package network

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ghostnet/ghostserver/protocol"
)

const writeTimeout = 10 * time.Second

// TCPConn carries length-prefixed frames over a raw TCP socket. Reads poll
// with a short deadline so the owning loop can evaluate heartbeats between
// frames; a partially received frame is kept across calls.
type TCPConn struct {
	conn        net.Conn
	sendMu      sync.Mutex
	readTimeout time.Duration
	maxFrame    uint32

	// Partial frame state, owned by the read loop goroutine.
	buf    []byte
	filled int
	inBody bool
}

func NewTCPConn(conn net.Conn, readTimeout time.Duration, maxFrame uint32) *TCPConn {
	if maxFrame == 0 {
		maxFrame = protocol.DefaultMaxFrameSize
	}
	return &TCPConn{
		conn:        conn,
		readTimeout: readTimeout,
		maxFrame:    maxFrame,
		buf:         make([]byte, protocol.HeaderSize),
	}
}

// ReadFrame returns the next frame, ErrReadTimeout when the deadline passed
// without completing one, or a fatal error (including framing violations).
func (c *TCPConn) ReadFrame() (*Frame, error) {
	for {
		if err := c.fill(); err != nil {
			return nil, err
		}

		if !c.inBody {
			length, err := protocol.DecodeHeader(c.buf)
			if err != nil {
				return nil, err
			}
			if length == 0 {
				return nil, fmt.Errorf("%w: zero-length frame", protocol.ErrFraming)
			}
			// Reject before buffering: an oversize length is an attack or a
			// desynchronized peer, either way the connection is done.
			if length > c.maxFrame {
				return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit %d", protocol.ErrFraming, length, c.maxFrame)
			}
			c.inBody = true
			c.buf = make([]byte, length)
			c.filled = 0
			continue
		}

		op, payload, err := protocol.DecodeBody(c.buf)
		if err != nil {
			return nil, err
		}
		c.inBody = false
		c.buf = make([]byte, protocol.HeaderSize)
		c.filled = 0
		return &Frame{Op: op, Payload: payload}, nil
	}
}

// fill reads until the current target buffer is full, surfacing
// ErrReadTimeout on each deadline so the caller's loop stays responsive.
func (c *TCPConn) fill() error {
	for c.filled < len(c.buf) {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return err
		}
		n, err := c.conn.Read(c.buf[c.filled:])
		c.filled += n
		if err != nil {
			if isTimeout(err) {
				return ErrReadTimeout
			}
			return err
		}
	}
	return nil
}

func (c *TCPConn) Send(op protocol.OpCode, payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(protocol.Encode(op, payload))
	return err
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

func (c *TCPConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
