// Package admin exposes the administrative surface over net/rpc: list
// active sessions, broadcast a message, kick a client. Dashboard rendering
// lives elsewhere; this is only the operations it consumes.
package admin

import (
	"net"
	"net/rpc"
	"time"

	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/session"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer binds the RPC listener. Services must be registered with
// net/rpc before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, address: addr}, nil
}

// Start serves RPC requests until the listener closes.
func (s *Server) Start() {
	logger.Log.Infow("admin rpc listening", "addr", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("admin rpc listener closed")
				return
			}
			logger.Log.Errorw("admin rpc accept failed", "error", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Service holds the RPC methods. It only needs the session registry; kicked
// sessions unwind through their own read loops.
type Service struct {
	registry *session.Registry
}

func NewService(registry *session.Registry) *Service {
	return &Service{registry: registry}
}

// SessionInfo is one row of the session table.
type SessionInfo struct {
	Address    string
	Pseudonym  string
	Room       string
	LastPacket time.Time
}

type ListSessionsArgs struct{}

type ListSessionsReply struct {
	Sessions []SessionInfo
}

func (a *Service) ListSessions(_ *ListSessionsArgs, reply *ListSessionsReply) error {
	for _, s := range a.registry.Sessions() {
		_, roomName := s.Room()
		reply.Sessions = append(reply.Sessions, SessionInfo{
			Address:    s.RemoteAddr().String(),
			Pseudonym:  s.Pseudonym(),
			Room:       roomName,
			LastPacket: s.LastPacket(),
		})
	}
	return nil
}

type BroadcastArgs struct {
	Message string
}

type BroadcastReply struct {
	Delivered int
}

func (a *Service) Broadcast(args *BroadcastArgs, reply *BroadcastReply) error {
	reply.Delivered = a.registry.BroadcastAdmin(args.Message)
	logger.Log.Infow("admin broadcast", "message", args.Message, "delivered", reply.Delivered)
	return nil
}

type KickArgs struct {
	Pseudonym string
}

type KickReply struct {
	Kicked bool
}

// Kick closes the named session's connection. The session's read loop runs
// the usual teardown (room leave, registry logout), same as any disconnect.
func (a *Service) Kick(args *KickArgs, reply *KickReply) error {
	s, ok := a.registry.Lookup(args.Pseudonym)
	if !ok {
		reply.Kicked = false
		return nil
	}
	logger.Log.Infow("kicking session", "pseudonym", args.Pseudonym)
	s.Close()
	reply.Kicked = true
	return nil
}
