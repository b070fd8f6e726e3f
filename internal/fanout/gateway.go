package fanout

import (
	"sync"

	"go.uber.org/zap"
)

// Sender is one live observer connection. The websocket Connection implements it.
type Sender interface {
	ID() string
	SendJSON(event string, data any) error
}

// Gateway maps observer keys (station or operator identifiers) to live connections
// and multicasts meter readings to them. A key may have any number of connections:
// several browser tabs watching the same station each get their own copy.
type Gateway struct {
	mu        sync.RWMutex
	observers map[string][]Sender
	logger    *zap.Logger
}

// NewGateway returns an empty gateway.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		observers: make(map[string][]Sender),
		logger:    logger,
	}
}

// Register adds a connection under the observer key. Registering the same
// connection twice under one key is a no-op so a client re-sending its observer
// claim does not receive duplicate readings.
func (g *Gateway) Register(observerKey string, s Sender) {
	if observerKey == "" || s == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.observers[observerKey] {
		if existing.ID() == s.ID() {
			return
		}
	}
	g.observers[observerKey] = append(g.observers[observerKey], s)
	g.logger.Debug("observer registered",
		zap.String("observer_key", observerKey), zap.String("connection_id", s.ID()))
}

// Unregister removes the connection from every observer key. Keys left with no
// connections are dropped entirely.
func (g *Gateway) Unregister(s Sender) {
	if s == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for key, senders := range g.observers {
		kept := senders[:0]
		for _, existing := range senders {
			if existing.ID() != s.ID() {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(g.observers, key)
			continue
		}
		g.observers[key] = kept
	}
}

// Broadcast sends the payload to every connection registered under the key.
// Delivery is best-effort per connection: one failed write never blocks the rest.
func (g *Gateway) Broadcast(observerKey, event string, data any) {
	if observerKey == "" {
		return
	}

	g.mu.RLock()
	senders := make([]Sender, len(g.observers[observerKey]))
	copy(senders, g.observers[observerKey])
	g.mu.RUnlock()

	for _, s := range senders {
		if err := s.SendJSON(event, data); err != nil {
			g.logger.Warn("failed to deliver to observer",
				zap.String("observer_key", observerKey),
				zap.String("connection_id", s.ID()),
				zap.Error(err))
		}
	}
}

// EmitToOne sends the payload to a single connection.
func (g *Gateway) EmitToOne(s Sender, event string, data any) {
	if s == nil {
		return
	}
	if err := s.SendJSON(event, data); err != nil {
		g.logger.Warn("failed to deliver to connection",
			zap.String("connection_id", s.ID()), zap.Error(err))
	}
}

// ObserverCount returns how many connections watch the key.
func (g *Gateway) ObserverCount(observerKey string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.observers[observerKey])
}
