// Package room owns the fixed room set: membership, the embedded game per
// room, and room-scoped broadcast. One mutex per room serializes joins,
// leaves, and plays; broadcasts happen under that mutex so every member
// observes state changes in the order they occurred.
package room

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghostnet/ghostserver/game"
	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/protocol"
	"github.com/ghostnet/ghostserver/session"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room full")
	ErrNotInRoom      = errors.New("not in a room")
	ErrAlreadyInRoom  = errors.New("already in a room")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrGameNotStarted = errors.New("waiting for players")
)

// Room is one fixed game table.
type Room struct {
	ID       uint32
	Name     string
	Capacity int

	mu      sync.Mutex
	members map[string]*session.Session // session ID -> session
	game    *game.State
}

// memberCount is only safe under r.mu.
func (r *Room) memberCount() int {
	return len(r.members)
}

// broadcast fans a frame to every member, optionally excluding one session.
// Best-effort: a failed write marks that member dead without aborting the
// rest. Callers hold r.mu.
func (r *Room) broadcast(op protocol.OpCode, payload []byte, exclude *session.Session) {
	for _, member := range r.members {
		if member == exclude {
			continue
		}
		if err := member.Send(op, payload); err != nil {
			logger.Log.Warnw("broadcast write failed",
				"room", r.Name, "member", member.Pseudonym(), "error", err)
		}
	}
}

// snapshot builds the GAME_STATE broadcast body. Callers hold r.mu.
func (r *Room) snapshot(event string) protocol.GameStateData {
	active := r.game.CurrentPlayer()
	if r.memberCount() < 2 || active == "" {
		active = protocol.WaitingForPlayers
	}
	return protocol.GameStateData{
		Fragment:     r.game.Fragment(),
		Scores:       r.game.Scores(),
		ActivePlayer: active,
		Event:        event,
	}
}

// broadcastState pushes a GAME_STATE snapshot to the whole room. Callers
// hold r.mu.
func (r *Room) broadcastState(event string) {
	payload, err := protocol.EncodeData(r.snapshot(event))
	if err != nil {
		logger.Log.Errorw("failed to encode game state", "room", r.Name, "error", err)
		return
	}
	r.broadcast(protocol.Data, payload, nil)
}

// punish applies a penalty and, on elimination, announces GAME_OVER and
// drops the player from the turn order. Eliminated players stay room
// members and keep receiving broadcasts. Callers hold r.mu.
func (r *Room) punish(pseudonym string) {
	if r.game.PunishPlayer(pseudonym) == game.Eliminated {
		payload, err := protocol.EncodeData(protocol.GameOverData{Loser: pseudonym})
		if err == nil {
			r.broadcast(protocol.Data, payload, nil)
		}
		r.game.RemovePlayer(pseudonym)
		logger.Log.Infow("player eliminated", "room", r.Name, "player", pseudonym)
	}
}

// Manager holds the room set, fixed at startup.
type Manager struct {
	rooms map[uint32]*Room
	order []uint32 // listing order, as configured
}

// RoomSpec describes one fixed room.
type RoomSpec struct {
	ID       uint32
	Name     string
	Capacity int
}

// NewManager builds the fixed room set. strictWords enables the
// invalid-prefix loss rule in every room's game.
func NewManager(specs []RoomSpec, strictWords bool) (*Manager, error) {
	m := &Manager{rooms: make(map[uint32]*Room, len(specs))}
	for _, spec := range specs {
		if spec.ID == 0 {
			return nil, fmt.Errorf("room %q: id 0 is reserved", spec.Name)
		}
		if _, dup := m.rooms[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate room id %d", spec.ID)
		}
		m.rooms[spec.ID] = &Room{
			ID:       spec.ID,
			Name:     spec.Name,
			Capacity: spec.Capacity,
			members:  make(map[string]*session.Session),
			game:     game.New(strictWords),
		}
		m.order = append(m.order, spec.ID)
	}
	return m, nil
}

// Get returns a room by id.
func (m *Manager) Get(id uint32) (*Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// List returns the wire-ready room table with live member counts.
func (m *Manager) List() []protocol.RoomInfo {
	out := make([]protocol.RoomInfo, 0, len(m.order))
	for _, id := range m.order {
		r := m.rooms[id]
		r.mu.Lock()
		count := r.memberCount()
		r.mu.Unlock()
		out = append(out, protocol.RoomInfo{
			ID:       r.ID,
			Name:     r.Name,
			Players:  uint8(count),
			Capacity: uint8(r.Capacity),
		})
	}
	return out
}

// Occupancy reports member counts per room name, for metrics.
func (m *Manager) Occupancy() map[string]int {
	out := make(map[string]int, len(m.rooms))
	for _, r := range m.rooms {
		r.mu.Lock()
		out[r.Name] = r.memberCount()
		r.mu.Unlock()
	}
	return out
}

// Join adds a session to a room: membership, turn order, NOTIFY(JOIN) to the
// existing members, RESP_ROOM to the joiner, then a GAME_STATE snapshot to
// everyone.
func (m *Manager) Join(s *session.Session, roomID uint32) error {
	if id, _ := s.Room(); id != 0 {
		return ErrAlreadyInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberCount() >= r.Capacity {
		return ErrRoomFull
	}

	pseudonym := s.Pseudonym()
	r.broadcast(protocol.Notify, protocol.EncodeNotify(protocol.NotifyJoin, pseudonym), nil)

	r.members[s.ID] = s
	r.game.AddPlayer(pseudonym)
	s.SetRoom(r.ID, r.Name)

	names := make([]string, 0, r.memberCount())
	for _, member := range r.members {
		names = append(names, member.Pseudonym())
	}
	if payload, err := protocol.EncodeRoomMembers(names); err == nil {
		_ = s.Send(protocol.RespRoom, payload)
	}

	r.broadcastState("")
	logger.Log.Infow("player joined room", "room", r.Name, "player", pseudonym)
	return nil
}

// Leave removes a session from its room, notifies the remaining members and
// refreshes their game state. No-op for sessions outside any room; safe to
// call more than once.
func (m *Manager) Leave(s *session.Session) {
	roomID, _ := s.Room()
	if roomID == 0 {
		return
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, member := r.members[s.ID]; !member {
		return
	}
	delete(r.members, s.ID)
	pseudonym := s.Pseudonym()
	r.game.RemovePlayer(pseudonym)
	s.ClearRoom()

	if r.memberCount() > 0 {
		r.broadcast(protocol.Notify, protocol.EncodeNotify(protocol.NotifyLeave, pseudonym), nil)
		r.broadcastState("")
	}
	logger.Log.Infow("player left room", "room", r.Name, "player", pseudonym)
}

// roomOf resolves the caller's room, checking it is actually playable.
func (m *Manager) roomOf(s *session.Session) (*Room, error) {
	roomID, _ := s.Room()
	if roomID == 0 {
		return nil, ErrNotInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotInRoom
	}
	return r, nil
}

// PlayLetter handles one Ghost move from the session.
func (m *Manager) PlayLetter(s *session.Session, letter string) error {
	r, err := m.roomOf(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberCount() < 2 {
		return ErrGameNotStarted
	}
	pseudonym := s.Pseudonym()
	if r.game.CurrentPlayer() != pseudonym {
		return ErrNotYourTurn
	}

	result, err := r.game.PlayLetter(letter)
	if err != nil {
		return err
	}

	var event string
	switch result {
	case game.Continue:
		r.game.NextTurn()
	case game.LoseWord:
		event = fmt.Sprintf("%s completed a valid word!", pseudonym)
		r.punish(pseudonym)
	case game.LoseInvalid:
		event = fmt.Sprintf("%s played an impossible letter!", pseudonym)
		r.punish(pseudonym)
	}

	r.broadcastState(event)
	return nil
}

// Challenge handles a challenge from the session against the previous
// player's letter. The fragment is cleared and the turn moves past the
// challenger either way.
func (m *Manager) Challenge(s *session.Session) error {
	r, err := m.roomOf(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberCount() < 2 {
		return ErrGameNotStarted
	}
	pseudonym := s.Pseudonym()
	if r.game.CurrentPlayer() != pseudonym {
		return ErrNotYourTurn
	}

	previous := r.game.PreviousPlayer()
	var event string
	if r.game.Challenge() == game.PreviousLoses {
		event = fmt.Sprintf("Challenge successful! %s loses.", previous)
		r.punish(previous)
	} else {
		event = fmt.Sprintf("Challenge failed! %s loses.", pseudonym)
		r.punish(pseudonym)
	}

	// Advance past the challenger unless their elimination already moved
	// the turn along.
	if r.game.CurrentPlayer() == pseudonym {
		r.game.NextTurn()
	}

	r.broadcastState(event)
	return nil
}

// Chat relays a chat line to the sender's room. The sender field is stamped
// server-side; clients cannot speak as someone else.
func (m *Manager) Chat(s *session.Session, message string) error {
	r, err := m.roomOf(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := protocol.EncodeData(protocol.ChatData{
		Sender:  s.Pseudonym(),
		Message: message,
	})
	if err != nil {
		return err
	}
	r.broadcast(protocol.Data, payload, nil)
	return nil
}
