package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostnet/ghostserver/protocol"
)

// WSConn carries the protocol over WebSocket binary messages. Each message
// is one frame body (opcode + payload); the length prefix is implied by the
// message boundary. A pump goroutine feeds ReadFrame so the read loop keeps
// its polling semantics.
type WSConn struct {
	conn        *websocket.Conn
	sendMu      sync.Mutex
	readTimeout time.Duration

	frames  chan *Frame
	readErr error
	done    chan struct{} // closed when the pump exits
	quit    chan struct{} // closed by Close to release the pump
	once    sync.Once
}

func NewWSConn(conn *websocket.Conn, readTimeout time.Duration, maxFrame uint32) *WSConn {
	if maxFrame == 0 {
		maxFrame = protocol.DefaultMaxFrameSize
	}
	conn.SetReadLimit(int64(maxFrame))
	c := &WSConn{
		conn:        conn,
		readTimeout: readTimeout,
		frames:      make(chan *Frame),
		done:        make(chan struct{}),
		quit:        make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *WSConn) pump() {
	defer close(c.done)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		op, payload, err := protocol.DecodeBody(data)
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.frames <- &Frame{Op: op, Payload: payload}:
		case <-c.quit:
			return
		}
	}
}

func (c *WSConn) ReadFrame() (*Frame, error) {
	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.done:
		return nil, c.readErr
	case <-timer.C:
		return nil, ErrReadTimeout
	}
}

func (c *WSConn) Send(op protocol.OpCode, payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	body := append([]byte{byte(op)}, payload...)
	return c.conn.WriteMessage(websocket.BinaryMessage, body)
}

func (c *WSConn) Close() error {
	c.once.Do(func() { close(c.quit) })
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
