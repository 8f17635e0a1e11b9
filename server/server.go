// Package server wires the listeners to the protocol: it accepts
// connections, runs one read/dispatch loop per session, and enforces the
// listener-level admission policy.
package server

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ghostnet/ghostserver/config"
	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/monitor"
	"github.com/ghostnet/ghostserver/network"
	"github.com/ghostnet/ghostserver/protocol"
	"github.com/ghostnet/ghostserver/rendezvous"
	"github.com/ghostnet/ghostserver/room"
	"github.com/ghostnet/ghostserver/session"
	"github.com/ghostnet/ghostserver/timer"
)

type Server struct {
	cfg config.ServerConfig

	registry *session.Registry
	rooms    *room.Manager
	broker   *rendezvous.Broker
	metrics  *monitor.Monitor
	timers   *timer.Manager

	listener  net.Listener
	wsServer  *http.Server
	upgrader  websocket.Upgrader
	connCount atomic.Int32
	shutdown  chan struct{}
	closed    atomic.Bool
}

func New(cfg *config.Config) (*Server, error) {
	specs := make([]room.RoomSpec, 0, len(cfg.Rooms))
	for _, rc := range cfg.Rooms {
		specs = append(specs, room.RoomSpec{ID: rc.ID, Name: rc.Name, Capacity: rc.Capacity})
	}
	rooms, err := room.NewManager(specs, cfg.Game.StrictWords)
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry()
	s := &Server{
		cfg:      cfg.Server,
		registry: registry,
		rooms:    rooms,
		broker:   rendezvous.NewBroker(registry),
		metrics:  monitor.NewMonitor("ghostserver"),
		timers:   timer.NewManager(),
		shutdown: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	return s, nil
}

// Registry exposes the session registry to the administrative surface.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Start binds the listeners and blocks serving the TCP accept loop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.TCPAddress)
	if err != nil {
		return err
	}
	s.listener = listener
	logger.Log.Infow("listening", "tcp", s.cfg.TCPAddress)

	if s.cfg.MetricsAddress != "" {
		s.metrics.StartServer(s.cfg.MetricsAddress)
		logger.Log.Infow("metrics endpoint up", "addr", s.cfg.MetricsAddress)
	}
	s.timers.Schedule(time.Second, time.Second, s.refreshGauges)

	if s.cfg.WSAddress != "" {
		s.startWebSocket()
	}

	return s.acceptLoop()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Log.Errorw("accept failed", "error", err)
			continue
		}

		// Listener-level admission: over capacity, reject before auth with a
		// redirect hint and close.
		if int(s.connCount.Load()) >= s.cfg.MaxClients {
			logger.Log.Infow("server full, rejecting", "remote", conn.RemoteAddr())
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			_, _ = conn.Write(protocol.Encode(protocol.Error, []byte(s.cfg.RedirectHint)))
			_ = conn.Close()
			continue
		}

		tcpConn := network.NewTCPConn(conn, s.cfg.ReadTimeout, s.cfg.MaxFrameSize)
		go s.handleConn(tcpConn)
	}
}

func (s *Server) startWebSocket() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if int(s.connCount.Load()) >= s.cfg.MaxClients {
			http.Error(w, s.cfg.RedirectHint, http.StatusServiceUnavailable)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Warnw("websocket upgrade failed", "error", err)
			return
		}
		go s.handleConn(network.NewWSConn(conn, s.cfg.ReadTimeout, s.cfg.MaxFrameSize))
	})
	s.wsServer = &http.Server{Addr: s.cfg.WSAddress, Handler: mux}
	go func() {
		if err := s.wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorw("websocket server stopped", "error", err)
		}
	}()
	logger.Log.Infow("websocket endpoint up", "addr", s.cfg.WSAddress)
}

// handleConn runs one session's read/dispatch loop until the connection
// fails, a heartbeat expires, or the server shuts down.
func (s *Server) handleConn(conn network.Conn) {
	sess := session.New(uuid.New().String(), conn)
	s.connCount.Add(1)
	s.metrics.IncConnections()
	logger.Log.Infow("connection open", "remote", conn.RemoteAddr(), "session", sess.ID)

	defer s.teardown(sess)

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		frame, err := sess.ReadFrame()
		if err != nil {
			if errors.Is(err, network.ErrReadTimeout) {
				if !sess.CheckHeartbeat(s.cfg.PingInterval, s.cfg.PongTimeout) {
					logger.Log.Warnw("heartbeat timeout", "session", sess.ID, "pseudonym", sess.Pseudonym())
					return
				}
				if sess.Dead() {
					return
				}
				continue
			}
			if errors.Is(err, protocol.ErrFraming) {
				logger.Log.Warnw("framing violation", "session", sess.ID, "error", err)
			}
			return
		}

		sess.TouchPacket()
		s.metrics.IncFrames()
		start := time.Now()
		s.dispatch(sess, frame)
		s.metrics.ObserveDispatch(time.Since(start))

		if sess.Dead() {
			return
		}
	}
}

// teardown releases everything a session holds. Every exit path funnels
// here exactly once per connection, and each step is a no-op when already
// done, so overlapping disconnect causes (read failure, heartbeat timeout,
// admin kick) cannot double-count.
func (s *Server) teardown(sess *session.Session) {
	wasAuthenticated := sess.Pseudonym() != ""
	s.rooms.Leave(sess)
	s.registry.Logout(sess)
	sess.Close()
	s.connCount.Add(-1)
	s.metrics.DecConnections()
	if wasAuthenticated {
		s.metrics.DecSessions()
	}
	logger.Log.Infow("connection closed", "session", sess.ID, "pseudonym", sess.Pseudonym())
}

func (s *Server) refreshGauges() {
	for name, count := range s.rooms.Occupancy() {
		s.metrics.SetRoomOccupancy(name, count)
	}
}

// Shutdown stops the listeners and releases the accept loop. Existing
// sessions unwind through their own read loops.
func (s *Server) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.shutdown)
	s.timers.Stop()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.wsServer != nil {
		_ = s.wsServer.Close()
	}
	for _, sess := range s.registry.Sessions() {
		sess.Close()
	}
}

// Addr returns the bound TCP address, useful when the configured port is 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
