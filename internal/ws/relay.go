package ws

import (
	"go.uber.org/zap"

	"rupeeflow/internal/fanout"
	"rupeeflow/internal/models"
)

// Relay implements meter.Emitter: each reading goes to the session's owning
// connection and, enriched with session identity, to every observer watching the
// session's station.
type Relay struct {
	manager *Manager
	gateway *fanout.Gateway
	logger  *zap.Logger
}

// NewRelay builds the relay.
func NewRelay(manager *Manager, gateway *fanout.Gateway, logger *zap.Logger) *Relay {
	return &Relay{
		manager: manager,
		gateway: gateway,
		logger:  logger,
	}
}

// EmitReading pushes one reading out. Delivery is best-effort on both paths.
func (r *Relay) EmitReading(snap models.SessionSnapshot, reading models.Reading) {
	if conn, ok := r.manager.Get(snap.ConnectionID); ok {
		r.gateway.EmitToOne(conn, EventReading, reading)
	} else {
		r.logger.Debug("owning connection gone, reading not delivered",
			zap.String("session_id", snap.ID), zap.String("connection_id", snap.ConnectionID))
	}

	if snap.ObserverKey == "" {
		return
	}
	r.gateway.Broadcast(snap.ObserverKey, EventReading, models.ObserverReading{
		Reading:     reading,
		VehicleReg:  snap.VehicleReg,
		StationName: snap.StationName,
		DisplayName: snap.DisplayName,
	})
}
