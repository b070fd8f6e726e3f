package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rupeeflow/internal/auth"
	"rupeeflow/internal/fanout"
	"rupeeflow/internal/metrics"
)

// Teardown deletes every session a closing connection owns.
type Teardown interface {
	TeardownConnection(ctx context.Context, connectionID string)
}

// Server upgrades HTTP requests to metering WebSockets.
type Server struct {
	manager      *Manager
	processor    Processor
	gateway      *fanout.Gateway
	teardown     Teardown
	tokens       *auth.TokenService
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the ws server.
func NewServer(manager *Manager, processor Processor, gateway *fanout.Gateway, teardown Teardown, tokens *auth.TokenService, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		manager:      manager,
		processor:    processor,
		gateway:      gateway,
		teardown:     teardown,
		tokens:       tokens,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for the /ws endpoint. The bearer token is checked
// before the upgrade; its claims supply the owner reference for every session the
// connection starts.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.ValidateToken(bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(uuid.NewString(), claims.OwnerRef, conn, s.processor, s.writeTimeout, s.logger, func(c *Connection) {
		// Disconnect handling is synchronous: registrations and owned sessions are
		// gone before the connection is forgotten, so no later tick can reach it.
		s.gateway.Unregister(c)
		s.teardown.TeardownConnection(context.Background(), c.ID())
		s.manager.Remove(c.ID())
		metrics.ObserveConnections(s.manager.Count())
		cancel()
		s.logger.Info("client disconnected",
			zap.String("connection_id", c.ID()), zap.String("owner_ref", c.OwnerRef()))
	})
	s.manager.Add(connection)
	metrics.ObserveConnections(s.manager.Count())

	go connection.Start(ctx)
	s.logger.Info("client connected",
		zap.String("connection_id", connection.ID()), zap.String("owner_ref", claims.OwnerRef))
}

func bearerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
