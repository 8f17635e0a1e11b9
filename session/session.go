// Package session holds the per-connection session object and the global
// pseudonym registry.
package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghostnet/ghostserver/network"
	"github.com/ghostnet/ghostserver/protocol"
)

// State is the session lifecycle position.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
	StateClosed
)

// Session is one connected client. The read loop is the only writer of the
// heartbeat fields; pseudonym and room are read concurrently by the admin
// surface and guarded by the mutex.
type Session struct {
	ID   string
	conn network.Conn

	mu         sync.RWMutex
	pseudonym  string
	roomID     uint32
	roomName   string
	lastPacket time.Time

	state atomic.Int32
	dead  atomic.Bool

	// Heartbeat tracker, owned by the read loop.
	lastPingSent time.Time
	awaitingPong bool
	pongDeadline time.Time

	CreatedAt time.Time
	closeOnce sync.Once
}

func New(id string, conn network.Conn) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		conn:         conn,
		lastPacket:   now,
		lastPingSent: now,
		CreatedAt:    now,
	}
}

// Send writes one frame synchronously. A write failure marks the session
// dead; its read loop performs the actual teardown.
func (s *Session) Send(op protocol.OpCode, payload []byte) error {
	if s.dead.Load() {
		return net.ErrClosed
	}
	if err := s.conn.Send(op, payload); err != nil {
		s.dead.Store(true)
		return err
	}
	return nil
}

// SendError replies with an ERROR frame carrying a human-readable message.
func (s *Session) SendError(msg string) {
	_ = s.Send(protocol.Error, []byte(msg))
}

func (s *Session) ReadFrame() (*network.Frame, error) {
	return s.conn.ReadFrame()
}

func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Dead reports whether the session has been marked for teardown.
func (s *Session) Dead() bool {
	return s.dead.Load()
}

// MarkDead flags the session for teardown without closing the socket; the
// read loop notices on its next pass.
func (s *Session) MarkDead() {
	s.dead.Store(true)
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) SetState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) Pseudonym() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pseudonym
}

func (s *Session) setPseudonym(p string) {
	s.mu.Lock()
	s.pseudonym = p
	s.mu.Unlock()
}

// Room returns the current room id and name; id 0 means none.
func (s *Session) Room() (uint32, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID, s.roomName
}

func (s *Session) SetRoom(id uint32, name string) {
	s.mu.Lock()
	s.roomID = id
	s.roomName = name
	s.mu.Unlock()
}

func (s *Session) ClearRoom() {
	s.SetRoom(0, "")
}

// TouchPacket records frame arrival time for the admin surface.
func (s *Session) TouchPacket() {
	s.mu.Lock()
	s.lastPacket = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastPacket() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPacket
}

// CheckHeartbeat advances the ping/pong cycle: idle longer than pingInterval
// sends one PING and arms the pong deadline. Returns false once the armed
// deadline has passed, which is fatal for the session.
func (s *Session) CheckHeartbeat(pingInterval, pongTimeout time.Duration) bool {
	now := time.Now()
	if s.awaitingPong {
		return !now.After(s.pongDeadline)
	}
	if now.Sub(s.lastPingSent) > pingInterval {
		_ = s.Send(protocol.Ping, nil)
		s.awaitingPong = true
		s.pongDeadline = now.Add(pongTimeout)
	}
	return true
}

// HandlePong clears an armed heartbeat and restarts the idle window.
func (s *Session) HandlePong() {
	s.awaitingPong = false
	s.lastPingSent = time.Now()
}

// Close shuts the underlying transport. Idempotent; safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.SetState(StateClosed)
		s.dead.Store(true)
		_ = s.conn.Close()
	})
}
