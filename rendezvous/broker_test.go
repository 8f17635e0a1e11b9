package rendezvous

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/ghostnet/ghostserver/network"
	"github.com/ghostnet/ghostserver/protocol"
	"github.com/ghostnet/ghostserver/session"
)

// MockConn is a test double for the network.Conn interface.
type MockConn struct {
	mu   sync.Mutex
	addr string
	sent []network.Frame
}

func (m *MockConn) ReadFrame() (*network.Frame, error) {
	return nil, network.ErrReadTimeout
}

func (m *MockConn) Send(op protocol.OpCode, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, network.Frame{Op: op, Payload: payload})
	return nil
}

func (m *MockConn) Close() error { return nil }

func (m *MockConn) RemoteAddr() net.Addr {
	addr, err := net.ResolveTCPAddr("tcp", m.addr)
	if err != nil {
		return &net.TCPAddr{}
	}
	return addr
}

func (m *MockConn) frames() []network.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]network.Frame, len(m.sent))
	copy(out, m.sent)
	return out
}

func login(t *testing.T, reg *session.Registry, pseudonym, addr string) (*session.Session, *MockConn) {
	t.Helper()
	conn := &MockConn{addr: addr}
	sess := session.New(pseudonym+"-id", conn)
	if err := reg.Login(sess, pseudonym); err != nil {
		t.Fatalf("login %s failed: %v", pseudonym, err)
	}
	return sess, conn
}

func TestBroker_InitForwardsToTarget(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	requester, requesterConn := login(t, reg, "Alice", "10.0.0.1:1111")
	_, targetConn := login(t, reg, "Bob", "10.0.0.2:2222")

	if err := broker.HandleInit(requester, []byte("Bob")); err != nil {
		t.Fatalf("HandleInit failed: %v", err)
	}

	frames := targetConn.frames()
	if len(frames) != 1 || frames[0].Op != protocol.ReqP2PStart {
		t.Fatalf("Target should receive REQ_P2P_START, got %v", frames)
	}
	if string(frames[0].Payload) != "Alice" {
		t.Errorf("Forwarded payload must carry the requester, got %q", frames[0].Payload)
	}
	if len(requesterConn.frames()) != 0 {
		t.Errorf("Requester should receive nothing on success, got %v", requesterConn.frames())
	}
}

func TestBroker_InitUnknownTarget(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	requester, _ := login(t, reg, "Alice", "10.0.0.1:1111")
	_, bystanderConn := login(t, reg, "Bob", "10.0.0.2:2222")

	err := broker.HandleInit(requester, []byte("Ghost"))
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("Expected ErrTargetNotFound, got %v", err)
	}
	if len(bystanderConn.frames()) != 0 {
		t.Error("No third party may hear about a failed init")
	}
}

func TestBroker_InitSelfTarget(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	requester, _ := login(t, reg, "Alice", "10.0.0.1:1111")
	if err := broker.HandleInit(requester, []byte("Alice")); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("Expected ErrSelfTarget, got %v", err)
	}
}

func TestBroker_ReadyRelaysObservedAddress(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	_, requesterConn := login(t, reg, "Alice", "10.0.0.1:1111")
	target, _ := login(t, reg, "Bob", "10.0.0.2:2222")

	payload, err := protocol.EncodeP2PReady("Alice", 43210)
	if err != nil {
		t.Fatalf("EncodeP2PReady failed: %v", err)
	}
	if err := broker.HandleReady(target, payload); err != nil {
		t.Fatalf("HandleReady failed: %v", err)
	}

	frames := requesterConn.frames()
	if len(frames) != 1 || frames[0].Op != protocol.RespP2PConnect {
		t.Fatalf("Requester should receive RESP_P2P_CONNECT, got %v", frames)
	}
	addr, port, err := protocol.DecodeP2PConnect(frames[0].Payload)
	if err != nil {
		t.Fatalf("bad connect payload: %v", err)
	}
	if addr != "10.0.0.2" {
		t.Errorf("Address must be the target's observed IP, got %q", addr)
	}
	if port != 43210 {
		t.Errorf("Port must be the target's listen port, got %d", port)
	}
}

func TestBroker_ReadyRequesterGone(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	target, targetConn := login(t, reg, "Bob", "10.0.0.2:2222")

	payload, err := protocol.EncodeP2PReady("Ghost", 43210)
	if err != nil {
		t.Fatalf("EncodeP2PReady failed: %v", err)
	}
	if err := broker.HandleReady(target, payload); err != nil {
		t.Errorf("A vanished requester is silently dropped, got %v", err)
	}
	if len(targetConn.frames()) != 0 {
		t.Error("No retry or notification goes back to the target")
	}
}

func TestBroker_ReadyMalformedPayload(t *testing.T) {
	reg := session.NewRegistry()
	broker := NewBroker(reg)

	target, _ := login(t, reg, "Bob", "10.0.0.2:2222")
	if err := broker.HandleReady(target, []byte{5, 'A'}); err == nil {
		t.Error("Malformed RESP_P2P_READY must be rejected")
	}
}
