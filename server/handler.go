package server

import (
	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/network"
	"github.com/ghostnet/ghostserver/protocol"
	"github.com/ghostnet/ghostserver/session"
)

type handlerFunc func(*Server, *session.Session, []byte)

// handlers maps each client-originated opcode to its handler. Dispatch is
// table-driven; anything absent is logged and ignored.
var handlers = map[protocol.OpCode]handlerFunc{
	protocol.ReqLogin:     (*Server).handleLogin,
	protocol.ReqJoin:      (*Server).handleJoin,
	protocol.ReqLeave:     (*Server).handleLeave,
	protocol.ReqListRooms: (*Server).handleListRooms,
	protocol.Data:         (*Server).handleData,
	protocol.ReqP2PInit:   (*Server).handleP2PInit,
	protocol.RespP2PReady: (*Server).handleP2PReady,
	protocol.Ping:         (*Server).handlePing,
	protocol.Pong:         (*Server).handlePong,
}

func (s *Server) dispatch(sess *session.Session, frame *network.Frame) {
	handler, ok := handlers[frame.Op]
	if !ok {
		logger.Log.Warnw("unknown opcode", "opcode", frame.Op, "session", sess.ID)
		return
	}
	handler(s, sess, frame.Payload)
}

// requireAuth gates room, game, and rendezvous opcodes behind login.
func (s *Server) requireAuth(sess *session.Session) bool {
	if sess.Pseudonym() == "" {
		sess.SendError("login first")
		return false
	}
	return true
}

func (s *Server) handleLogin(sess *session.Session, payload []byte) {
	pseudonym := string(payload)
	if err := s.registry.Login(sess, pseudonym); err != nil {
		logger.Log.Infow("login refused", "pseudonym", pseudonym, "session", sess.ID, "reason", err)
		_ = sess.Send(protocol.RespLogin, []byte{protocol.LoginRefused})
		return
	}
	s.metrics.IncSessions()
	logger.Log.Infow("login accepted", "pseudonym", pseudonym, "session", sess.ID)
	_ = sess.Send(protocol.RespLogin, []byte{protocol.LoginAccepted})
}

func (s *Server) handleJoin(sess *session.Session, payload []byte) {
	if !s.requireAuth(sess) {
		return
	}
	roomID, err := protocol.DecodeJoinReq(payload)
	if err != nil {
		sess.SendError("malformed join request")
		return
	}
	if err := s.rooms.Join(sess, roomID); err != nil {
		sess.SendError(err.Error())
		return
	}
	sess.SetState(session.StateInRoom)
}

func (s *Server) handleLeave(sess *session.Session, _ []byte) {
	if !s.requireAuth(sess) {
		return
	}
	s.rooms.Leave(sess)
	sess.SetState(session.StateAuthenticated)
}

func (s *Server) handleListRooms(sess *session.Session, _ []byte) {
	if !s.requireAuth(sess) {
		return
	}
	payload, err := protocol.EncodeRoomList(s.rooms.List())
	if err != nil {
		logger.Log.Errorw("failed to encode room list", "error", err)
		return
	}
	_ = sess.Send(protocol.RoomList, payload)
}

func (s *Server) handleData(sess *session.Session, payload []byte) {
	if !s.requireAuth(sess) {
		return
	}
	msg, err := protocol.DecodeData(payload)
	if err != nil {
		sess.SendError(err.Error())
		return
	}

	switch v := msg.(type) {
	case protocol.PlayLetterData:
		if err := s.rooms.PlayLetter(sess, v.Letter); err != nil {
			sess.SendError(err.Error())
		}
	case protocol.ChallengeData:
		if err := s.rooms.Challenge(sess); err != nil {
			sess.SendError(err.Error())
		}
	case protocol.ChatData:
		if err := s.rooms.Chat(sess, v.Message); err != nil {
			sess.SendError(err.Error())
		}
	default:
		// GAME_STATE, BROADCAST, GAME_OVER only ever flow server to client.
		sess.SendError("server-only message type")
	}
}

func (s *Server) handleP2PInit(sess *session.Session, payload []byte) {
	if !s.requireAuth(sess) {
		return
	}
	if err := s.broker.HandleInit(sess, payload); err != nil {
		sess.SendError(err.Error())
	}
}

func (s *Server) handleP2PReady(sess *session.Session, payload []byte) {
	if !s.requireAuth(sess) {
		return
	}
	if err := s.broker.HandleReady(sess, payload); err != nil {
		sess.SendError(err.Error())
	}
}

func (s *Server) handlePing(sess *session.Session, _ []byte) {
	_ = sess.Send(protocol.Pong, nil)
}

func (s *Server) handlePong(sess *session.Session, _ []byte) {
	sess.HandlePong()
}
