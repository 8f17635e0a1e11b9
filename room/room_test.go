package room

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

func (m *MockConn) Close() error         { return nil }
func (m *MockConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func (m *MockConn) frames() []network.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]network.Frame, len(m.sent))
	copy(out, m.sent)
	return out
}

// lastData decodes the most recent DATA frame sent to this conn.
func (m *MockConn) lastData(t *testing.T) protocol.DataMessage {
	t.Helper()
	frames := m.frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Op == protocol.Data {
			msg, err := protocol.DecodeData(frames[i].Payload)
			if err != nil {
				t.Fatalf("bad DATA payload: %v", err)
			}
			return msg
		}
	}
	t.Fatal("no DATA frame sent")
	return nil
}

type fixture struct {
	manager  *Manager
	registry *session.Registry
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	manager, err := NewManager([]RoomSpec{
		{ID: 1, Name: "Table 1", Capacity: 2},
		{ID: 2, Name: "Table 2", Capacity: 5},
	}, strict)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return &fixture{manager: manager, registry: session.NewRegistry()}
}

func (f *fixture) join(t *testing.T, pseudonym string, roomID uint32) (*session.Session, *MockConn) {
	t.Helper()
	conn := &MockConn{}
	sess := session.New(pseudonym+"-id", conn)
	if err := f.registry.Login(sess, pseudonym); err != nil {
		t.Fatalf("login %s failed: %v", pseudonym, err)
	}
	if err := f.manager.Join(sess, roomID); err != nil {
		t.Fatalf("join %s failed: %v", pseudonym, err)
	}
	return sess, conn
}

func TestManager_FixedRoomSet(t *testing.T) {
	f := newFixture(t, false)

	if _, ok := f.manager.Get(1); !ok {
		t.Error("Room 1 should exist")
	}
	if _, ok := f.manager.Get(99); ok {
		t.Error("Room 99 should not exist")
	}

	list := f.manager.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(list))
	}
	if list[0].ID != 1 || list[0].Name != "Table 1" || list[0].Capacity != 2 {
		t.Errorf("Unexpected first room: %+v", list[0])
	}
}

func TestManager_ValidatesSpecs(t *testing.T) {
	if _, err := NewManager([]RoomSpec{{ID: 0, Name: "bad", Capacity: 2}}, false); err == nil {
		t.Error("Room id 0 must be rejected")
	}
	if _, err := NewManager([]RoomSpec{
		{ID: 1, Name: "a", Capacity: 2},
		{ID: 1, Name: "b", Capacity: 2},
	}, false); err == nil {
		t.Error("Duplicate room ids must be rejected")
	}
}

func TestManager_JoinFlow(t *testing.T) {
	f := newFixture(t, false)

	_, aliceConn := f.join(t, "Alice", 1)

	// The joiner gets RESP_ROOM with the post-join member list.
	var members []string
	for _, frame := range aliceConn.frames() {
		if frame.Op == protocol.RespRoom {
			var err error
			members, err = protocol.DecodeRoomMembers(frame.Payload)
			if err != nil {
				t.Fatalf("bad RESP_ROOM: %v", err)
			}
		}
	}
	if len(members) != 1 || members[0] != "Alice" {
		t.Errorf("Expected member list [Alice], got %v", members)
	}

	// With a single member the game state says waiting.
	if state, ok := aliceConn.lastData(t).(protocol.GameStateData); !ok {
		t.Error("Expected a GAME_STATE broadcast after join")
	} else if state.ActivePlayer != protocol.WaitingForPlayers {
		t.Errorf("Expected waiting sentinel, got %q", state.ActivePlayer)
	}

	// The second join notifies the first member.
	f.join(t, "Bob", 1)
	sawJoinNotify := false
	for _, frame := range aliceConn.frames() {
		if frame.Op == protocol.Notify {
			kind, who, err := protocol.DecodeNotify(frame.Payload)
			if err == nil && kind == protocol.NotifyJoin && who == "Bob" {
				sawJoinNotify = true
			}
		}
	}
	if !sawJoinNotify {
		t.Error("Existing members must receive NOTIFY(JOIN, Bob)")
	}

	// With two members the game is on.
	if state := aliceConn.lastData(t).(protocol.GameStateData); state.ActivePlayer == protocol.WaitingForPlayers {
		t.Error("Two members should start the game")
	}
}

func TestManager_JoinErrors(t *testing.T) {
	f := newFixture(t, false)
	f.join(t, "Alice", 1)
	f.join(t, "Bob", 1)

	conn := &MockConn{}
	sess := session.New("carol-id", conn)
	if err := f.registry.Login(sess, "Carol"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.manager.Join(sess, 99); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
	if err := f.manager.Join(sess, 1); !errors.Is(err, ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}

	room, _ := f.manager.Get(1)
	room.mu.Lock()
	count := room.memberCount()
	room.mu.Unlock()
	if count != 2 {
		t.Errorf("A refused join must not change membership, got %d members", count)
	}

	alice, _ := f.registry.Lookup("Alice")
	if err := f.manager.Join(alice, 2); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("Expected ErrAlreadyInRoom, got %v", err)
	}
}

func TestManager_Leave(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	_, bobConn := f.join(t, "Bob", 1)

	f.manager.Leave(alice)
	if id, _ := alice.Room(); id != 0 {
		t.Error("Leave must clear the session's room")
	}

	sawLeaveNotify := false
	for _, frame := range bobConn.frames() {
		if frame.Op == protocol.Notify {
			kind, who, err := protocol.DecodeNotify(frame.Payload)
			if err == nil && kind == protocol.NotifyLeave && who == "Alice" {
				sawLeaveNotify = true
			}
		}
	}
	if !sawLeaveNotify {
		t.Error("Remaining members must receive NOTIFY(LEAVE, Alice)")
	}

	// Back below two members: waiting again.
	if state := bobConn.lastData(t).(protocol.GameStateData); state.ActivePlayer != protocol.WaitingForPlayers {
		t.Errorf("Expected waiting sentinel after leave, got %q", state.ActivePlayer)
	}

	// Leave is idempotent.
	f.manager.Leave(alice)
}

func TestManager_PlayLetterTurnOrder(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	bob, bobConn := f.join(t, "Bob", 1)

	if err := f.manager.PlayLetter(bob, "B"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn for Bob, got %v", err)
	}
	if err := f.manager.PlayLetter(alice, "B"); err != nil {
		t.Fatalf("Alice's play failed: %v", err)
	}

	state := bobConn.lastData(t).(protocol.GameStateData)
	if state.Fragment != "B" {
		t.Errorf("Expected fragment B, got %q", state.Fragment)
	}
	if state.ActivePlayer != "Bob" {
		t.Errorf("Turn should pass to Bob, got %q", state.ActivePlayer)
	}
}

func TestManager_PlayLetterRequiresTwoPlayers(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)

	if err := f.manager.PlayLetter(alice, "B"); !errors.Is(err, ErrGameNotStarted) {
		t.Errorf("Expected ErrGameNotStarted, got %v", err)
	}

	outsider := session.New("x-id", &MockConn{})
	if err := f.registry.Login(outsider, "Xavier"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := f.manager.PlayLetter(outsider, "B"); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("Expected ErrNotInRoom, got %v", err)
	}
}

func TestManager_CompletedWordPenalizesActor(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	bob, bobConn := f.join(t, "Bob", 1)

	// Alternate B-O-N-J-O-U, then Alice completes BONJOUR.
	players := []*session.Session{alice, bob}
	for i, letter := range []string{"B", "O", "N", "J", "O", "U", "R"} {
		if err := f.manager.PlayLetter(players[i%2], letter); err != nil {
			t.Fatalf("play %q failed: %v", letter, err)
		}
	}

	state := bobConn.lastData(t).(protocol.GameStateData)
	if state.Fragment != "" {
		t.Errorf("Completed word must clear the fragment, got %q", state.Fragment)
	}
	if state.Scores["Alice"] != "G" {
		t.Errorf("Alice should hold G, got %q", state.Scores["Alice"])
	}
	if state.Event == "" {
		t.Error("The snapshot should carry an event description")
	}
}

func TestManager_Challenge(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	bob, bobConn := f.join(t, "Bob", 1)

	// Alice plays an impossible letter, Bob challenges successfully.
	if err := f.manager.PlayLetter(alice, "Z"); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if err := f.manager.Challenge(bob); err != nil {
		t.Fatalf("challenge failed: %v", err)
	}

	state := bobConn.lastData(t).(protocol.GameStateData)
	if state.Scores["Alice"] != "G" {
		t.Errorf("The previous player should be penalized, got scores %v", state.Scores)
	}
	if state.Fragment != "" {
		t.Errorf("Challenge must clear the fragment, got %q", state.Fragment)
	}
	if state.ActivePlayer != "Alice" {
		t.Errorf("Turn should advance past the challenger, got %q", state.ActivePlayer)
	}
}

func TestManager_ChallengeFailed(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	bob, bobConn := f.join(t, "Bob", 1)

	if err := f.manager.PlayLetter(alice, "B"); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if err := f.manager.Challenge(bob); err != nil {
		t.Fatalf("challenge failed: %v", err)
	}

	state := bobConn.lastData(t).(protocol.GameStateData)
	if state.Scores["Bob"] != "G" {
		t.Errorf("The challenger should be penalized, got scores %v", state.Scores)
	}
}

func TestManager_EliminationBroadcastsGameOver(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	bob, bobConn := f.join(t, "Bob", 1)

	// Each round: Alice bluffs an impossible letter, Bob challenges, Alice
	// takes the penalty. Five rounds spell GHOST.
	for i := 0; i < 5; i++ {
		if err := f.manager.PlayLetter(alice, "Z"); err != nil {
			t.Fatalf("round %d play failed: %v", i, err)
		}
		if err := f.manager.Challenge(bob); err != nil {
			t.Fatalf("round %d challenge failed: %v", i, err)
		}
	}

	var gameOver *protocol.GameOverData
	for _, frame := range bobConn.frames() {
		if frame.Op != protocol.Data {
			continue
		}
		if msg, err := protocol.DecodeData(frame.Payload); err == nil {
			if v, ok := msg.(protocol.GameOverData); ok {
				gameOver = &v
			}
		}
	}
	if gameOver == nil {
		t.Fatal("Elimination must broadcast GAME_OVER")
	}
	if gameOver.Loser != "Alice" {
		t.Errorf("Expected Alice as loser, got %q", gameOver.Loser)
	}

	// Alice stays a room member but is out of the turn order.
	room, _ := f.manager.Get(1)
	room.mu.Lock()
	count := room.memberCount()
	room.mu.Unlock()
	if count != 2 {
		t.Errorf("Elimination must not remove the player from the room, got %d members", count)
	}
	if err := f.manager.PlayLetter(alice, "A"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Eliminated player must not act, got %v", err)
	}
}

func TestManager_Chat(t *testing.T) {
	f := newFixture(t, false)
	alice, _ := f.join(t, "Alice", 1)
	_, bobConn := f.join(t, "Bob", 1)

	if err := f.manager.Chat(alice, "hello"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	chat, ok := bobConn.lastData(t).(protocol.ChatData)
	if !ok {
		t.Fatal("Expected a CHAT relay")
	}
	if chat.Sender != "Alice" || chat.Message != "hello" {
		t.Errorf("Unexpected chat: %+v", chat)
	}
}

func TestManager_StrictMode(t *testing.T) {
	f := newFixture(t, true)
	alice, _ := f.join(t, "Alice", 1)
	_, bobConn := f.join(t, "Bob", 1)

	if err := f.manager.PlayLetter(alice, "B"); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	// Bob plays an impossible letter: penalized immediately, letter rolled
	// back, turn stays with Bob.
	bob, _ := f.registry.Lookup("Bob")
	if err := f.manager.PlayLetter(bob, "Z"); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	state := bobConn.lastData(t).(protocol.GameStateData)
	if state.Fragment != "B" {
		t.Errorf("Only the offending letter rolls back, got %q", state.Fragment)
	}
	if state.Scores["Bob"] != "G" {
		t.Errorf("Bob should be penalized, got %v", state.Scores)
	}
	if state.ActivePlayer != "Bob" {
		t.Errorf("Penalized player opens the next round, got %q", state.ActivePlayer)
	}
}
