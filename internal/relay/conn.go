package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBufferSize = 64
)

// State tracks a connection through its lifetime. Closed is terminal: no
// transition leaves it.
type State int

const (
	StateConnecting State = iota
	StateAuthorized
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorized:
		return "authorized"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one live peer connection. It is owned by the relay from successful
// handshake until close; all websocket reads happen on the readPump
// goroutine and all writes on the writePump goroutine.
type Conn struct {
	ws       *websocket.Conn
	id       string
	identity string
	room     string
	logger   *slog.Logger
	send     chan *Envelope
	done     chan struct{}

	mu         sync.Mutex
	state      State
	closed     bool
	violations int
	lastActive time.Time
}

func newConn(ws *websocket.Conn, identity, room string, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		ws:         ws,
		id:         id,
		identity:   identity,
		room:       room,
		logger:     logger.With("conn_id", id, "identity", identity, "room", room),
		send:       make(chan *Envelope, sendBufferSize),
		done:       make(chan struct{}),
		state:      StateConnecting,
		lastActive: time.Now(),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Identity() string {
	return c.identity
}

func (c *Conn) Room() string {
	return c.room
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.state = s
}

func (c *Conn) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// violation bumps the per-connection protocol violation counter and returns
// the new count. A single glitch only earns a warning; the caller closes the
// connection once the count crosses its policy threshold.
func (c *Conn) violation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations++
	return c.violations
}

// enqueue hands an envelope to the writePump without blocking the caller.
// When the peer cannot drain its buffer the message is dropped rather than
// stalling the sender's read loop.
func (c *Conn) enqueue(env *Envelope) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- env:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", env.Type)
	}
}

// closeWithCode sends a close frame carrying the given code before tearing
// the connection down, so the peer can tell why it was dropped.
func (c *Conn) closeWithCode(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = c.Close()
}

// Close is idempotent and synchronously releases the transport. Room
// membership cleanup happens on the readPump exit path, which Close
// unblocks.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosed
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

func (c *Conn) readPump(router *Router, maxViolations int) {
	defer func() {
		_ = c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		c.touch()

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			if c.punish(maxViolations, "malformed message") {
				return
			}
			continue
		}

		if err := router.Route(c, &env); err != nil {
			if c.punish(maxViolations, err.Error()) {
				return
			}
		}
	}
}

// punish records a protocol violation and reports whether the connection
// was closed for crossing the threshold.
func (c *Conn) punish(maxViolations int, reason string) bool {
	count := c.violation()
	c.logger.Warn("protocol violation", "reason", reason, "count", count)
	if count >= maxViolations {
		c.closeWithCode(CloseProtocolViolation, "too many protocol violations")
		return true
	}
	return false
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(env)
			if err != nil {
				c.logger.Error("failed to marshal envelope", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
