package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Processor handles inbound command frames for a connection.
type Processor interface {
	Process(ctx context.Context, c Client, raw []byte)
}

// Client is the processor's view of a connection.
type Client interface {
	ID() string
	OwnerRef() string
	SendJSON(event string, data any) error
	AddSession(sessionID string)
	RemoveSession(sessionID string)
	OwnedSessions() []string
}

var errSendBufferFull = errors.New("ws: send buffer full")

// Connection wraps one client WebSocket. It owns zero or more charging sessions,
// all of which are torn down when the socket closes.
type Connection struct {
	id           string
	ownerRef     string
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	processor    Processor
	writeTimeout time.Duration
	onClose      func(c *Connection)

	mu       sync.Mutex
	sessions map[string]struct{}
}

// NewConnection builds the connection wrapper.
func NewConnection(id, ownerRef string, ws *websocket.Conn, processor Processor, writeTimeout time.Duration, logger *zap.Logger, onClose func(*Connection)) *Connection {
	return &Connection{
		id:           id,
		ownerRef:     ownerRef,
		ws:           ws,
		send:         make(chan []byte, 32),
		logger:       logger,
		processor:    processor,
		writeTimeout: writeTimeout,
		onClose:      onClose,
		sessions:     make(map[string]struct{}),
	}
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// OwnerRef returns the authenticated user behind this connection.
func (c *Connection) OwnerRef() string {
	return c.ownerRef
}

// AddSession records ownership of a session.
func (c *Connection) AddSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sessionID] = struct{}{}
}

// RemoveSession drops ownership of a session.
func (c *Connection) RemoveSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}

// OwnedSessions lists the sessions this connection owns.
func (c *Connection) OwnedSessions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		out = append(out, id)
	}
	return out
}

// SendJSON enqueues an event frame for writing. Best-effort: a full buffer or a
// closed connection drops the frame and reports the failure to the caller.
func (c *Connection) SendJSON(event string, data any) (err error) {
	payload, err := json.Marshal(EventEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New("ws: connection closed")
		}
	}()
	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn("dropping outgoing event, buffer full",
			zap.String("connection_id", c.id), zap.String("event", event))
		return errSendBufferFull
	}
}

// Start launches the write pump and runs the read pump until the socket closes.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(64 * 1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.String("connection_id", c.id), zap.Error(err))
			return
		}

		c.processor.Process(ctx, c, message)
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Ping sends a keepalive frame.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}
