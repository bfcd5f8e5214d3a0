package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytescript/bytescript-rtc/internal/token"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	DefaultShutdownGrace = 10 * time.Second
	DefaultMaxViolations = 3
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Config struct {
	ShutdownGrace time.Duration
	MaxViolations int
}

type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// Server gates websocket upgrades on a valid session token and owns every
// live connection from handshake to close.
type Server struct {
	verifier TokenVerifier
	registry *Registry
	router   *Router
	config   Config
	logger   *slog.Logger

	mu        sync.Mutex
	conns     map[string]*Conn
	accepting bool
	wg        sync.WaitGroup
}

func NewServer(verifier TokenVerifier, registry *Registry, router *Router, config Config, logger *slog.Logger) *Server {
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}
	if config.MaxViolations <= 0 {
		config.MaxViolations = DefaultMaxViolations
	}
	return &Server{
		verifier:  verifier,
		registry:  registry,
		router:    router,
		config:    config,
		logger:    logger.With("component", "relay"),
		conns:     make(map[string]*Conn),
		accepting: true,
	}
}

// HandleConnection is the websocket entry point. The token is verified
// immediately after the upgrade, before any room state is touched; an
// invalid token earns a policy close frame so browser clients can tell why
// they were rejected.
func (s *Server) HandleConnection(c echo.Context) error {
	if !s.isAccepting() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "shutting down")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	raw := tokenFromRequest(c.Request())
	if raw == "" {
		rejectUpgrade(ws, "token_required")
		return nil
	}

	claims, err := s.verifier.Verify(raw)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, token.ErrExpired) {
			reason = "token_expired"
		}
		rejectUpgrade(ws, reason)
		return nil
	}

	room := claims.Room
	if queryRoom := c.QueryParam("room"); queryRoom != "" {
		if room != "" && queryRoom != room {
			rejectUpgrade(ws, "room_mismatch")
			return nil
		}
		room = queryRoom
	}
	if room == "" {
		rejectUpgrade(ws, "room_required")
		return nil
	}

	conn := newConn(ws, claims.Identity(), room, s.logger)
	conn.setState(StateAuthorized)

	if !s.register(conn) {
		conn.closeWithCode(CloseServerShutdown, "shutting down")
		return nil
	}

	s.registry.Join(room, conn)
	conn.setState(StateActive)
	conn.logger.Info("peer connected")

	go conn.writePump()
	conn.readPump(s.router, s.config.MaxViolations)

	s.cleanup(conn)
	conn.logger.Info("peer disconnected")
	return nil
}

// register admits the connection unless shutdown has begun since the
// accepting check. Each registered connection is released by exactly one
// cleanup call.
func (s *Server) register(conn *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting {
		return false
	}
	s.conns[conn.ID()] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) cleanup(conn *Conn) {
	s.registry.Leave(conn.Room(), conn)
	_ = conn.Close()

	s.mu.Lock()
	delete(s.conns, conn.ID())
	s.mu.Unlock()

	s.wg.Done()
}

func (s *Server) isAccepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepting
}

// ConnCount reports the number of live connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown stops accepting upgrades, notifies every active peer, and waits
// up to the configured grace period for them to close voluntarily before
// force-closing the rest. It returns once every connection has been cleaned
// up, so no room state survives it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.accepting = false
	remaining := make([]*Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		remaining = append(remaining, conn)
	}
	s.mu.Unlock()

	s.logger.Info("relay shutting down", "connections", len(remaining))

	notice := &Envelope{Type: MessageTypeServerClosing}
	for _, conn := range remaining {
		conn.setState(StateClosing)
		conn.enqueue(notice)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.forceClose()
		return ctx.Err()
	case <-time.After(s.config.ShutdownGrace):
	}

	s.forceClose()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) forceClose() {
	s.mu.Lock()
	remaining := make([]*Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		remaining = append(remaining, conn)
	}
	s.mu.Unlock()

	for _, conn := range remaining {
		conn.closeWithCode(CloseServerShutdown, "server shutting down")
	}
}

// tokenFromRequest pulls the session token from the `token` query parameter
// or, failing that, from the websocket subprotocol list, the only places an
// upgrade request can carry it.
func tokenFromRequest(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}

	protocols := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	for i := len(protocols) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(protocols[i]); p != "" && p != "bearer" {
			return p
		}
	}
	return ""
}

func rejectUpgrade(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(CloseAuthFailure, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = ws.Close()
}
