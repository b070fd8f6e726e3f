package ws

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"rupeeflow/internal/fanout"
	"rupeeflow/internal/meter"
	"rupeeflow/internal/models"
)

// SessionEngine is the slice of the meter engine the transport needs.
type SessionEngine interface {
	Start(ctx context.Context, params meter.StartParams) (models.SessionSnapshot, error)
	Stop(ctx context.Context, sessionID string) (models.FinalSummary, error)
	Resume(ctx context.Context, sessionID, connectionID string) (models.SessionSnapshot, error)
}

// CommandProcessor dispatches inbound command frames to the engine and pushes the
// resulting events back to the requesting client.
type CommandProcessor struct {
	engine  SessionEngine
	gateway *fanout.Gateway
	logger  *zap.Logger
}

// NewCommandProcessor builds the processor.
func NewCommandProcessor(engine SessionEngine, gateway *fanout.Gateway, logger *zap.Logger) *CommandProcessor {
	return &CommandProcessor{
		engine:  engine,
		gateway: gateway,
		logger:  logger,
	}
}

// Process decodes one inbound frame and executes it. Domain failures come back to
// the client as events; they never tear the connection down.
func (p *CommandProcessor) Process(ctx context.Context, c Client, raw []byte) {
	var envelope CommandEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		p.sendError(c, "", "malformed command frame")
		return
	}

	switch envelope.Event {
	case CommandStart:
		p.handleStart(ctx, c, envelope.Data)
	case CommandStop:
		p.handleStop(ctx, c, envelope.Data)
	case CommandResume:
		p.handleResume(ctx, c, envelope.Data)
	case CommandRegisterObserver:
		p.handleRegisterObserver(c, envelope.Data)
	default:
		p.sendError(c, envelope.Event, "unknown command")
	}
}

func (p *CommandProcessor) handleStart(ctx context.Context, c Client, data json.RawMessage) {
	cmd, err := Decode[StartCommand](data)
	if err != nil {
		p.sendError(c, CommandStart, "malformed start payload")
		return
	}

	snap, err := p.engine.Start(ctx, meter.StartParams{
		OwnerRef:              c.OwnerRef(),
		VehicleReg:            cmd.VehicleReg,
		BatteryCapacityKwh:    cmd.BatteryCapacityKwh,
		InitialBatteryPercent: cmd.InitialBatteryPercent,
		RatePerKwh:            cmd.RatePerKwh,
		ChargerPowerKw:        cmd.ChargerPowerKw,
		ConnectionID:          c.ID(),
		ObserverKey:           cmd.ObserverKey,
		StationName:           cmd.StationName,
		DisplayName:           cmd.DisplayName,
	})
	if err != nil {
		if errors.Is(err, meter.ErrInvalidInput) {
			p.sendError(c, CommandStart, "battery capacity must be a positive number")
			return
		}
		p.logger.Error("start command failed", zap.String("connection_id", c.ID()), zap.Error(err))
		p.sendError(c, CommandStart, "failed to start session")
		return
	}

	c.AddSession(snap.ID)
	_ = c.SendJSON(EventStarted, StartedEvent{SessionID: snap.ID})
}

func (p *CommandProcessor) handleStop(ctx context.Context, c Client, data json.RawMessage) {
	cmd, err := Decode[StopCommand](data)
	if err != nil || cmd.SessionID == "" {
		p.sendError(c, CommandStop, "session_id is required")
		return
	}

	summary, err := p.engine.Stop(ctx, cmd.SessionID)
	if err != nil {
		if errors.Is(err, meter.ErrNotFound) {
			p.sendError(c, CommandStop, "session not found")
			return
		}
		p.logger.Error("stop command failed", zap.String("session_id", cmd.SessionID), zap.Error(err))
		p.sendError(c, CommandStop, "failed to stop session")
		return
	}

	_ = c.SendJSON(EventStopped, summary)
}

func (p *CommandProcessor) handleResume(ctx context.Context, c Client, data json.RawMessage) {
	cmd, err := Decode[ResumeCommand](data)
	if err != nil || cmd.SessionID == "" {
		_ = c.SendJSON(EventResumeError, ResumeErrorEvent{Reason: "session_id is required"})
		return
	}

	snap, err := p.engine.Resume(ctx, cmd.SessionID, c.ID())
	if err != nil {
		switch {
		case errors.Is(err, meter.ErrNotFound):
			_ = c.SendJSON(EventResumeError, ResumeErrorEvent{Reason: "session not found"})
		case errors.Is(err, meter.ErrTimerConflict):
			_ = c.SendJSON(EventResumeError, ResumeErrorEvent{Reason: "session is already running"})
		default:
			p.logger.Error("resume command failed", zap.String("session_id", cmd.SessionID), zap.Error(err))
			_ = c.SendJSON(EventResumeError, ResumeErrorEvent{Reason: "failed to resume session"})
		}
		return
	}

	c.AddSession(snap.ID)
	_ = c.SendJSON(EventResumed, ResumedEvent{SessionID: snap.ID})
}

func (p *CommandProcessor) handleRegisterObserver(c Client, data json.RawMessage) {
	cmd, err := Decode[RegisterObserverCommand](data)
	if err != nil || cmd.ObserverKey == "" {
		p.sendError(c, CommandRegisterObserver, "observer_key is required")
		return
	}
	p.gateway.Register(cmd.ObserverKey, c)
}

func (p *CommandProcessor) sendError(c Client, command, message string) {
	_ = c.SendJSON(EventError, ErrorEvent{Command: command, Message: message})
}
