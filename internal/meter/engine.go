package meter

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"rupeeflow/internal/metrics"
	"rupeeflow/internal/models"
	"rupeeflow/internal/store"
)

// Domain errors returned to the transport adapter as values.
var (
	ErrInvalidInput  = errors.New("meter: invalid input")
	ErrNotFound      = errors.New("meter: session not found")
	ErrTimerConflict = errors.New("meter: session already has a live timer")
)

// Emitter receives every reading a running session produces. The websocket layer
// implements it; the engine stays transport-free.
type Emitter interface {
	EmitReading(snap models.SessionSnapshot, reading models.Reading)
}

// Archiver durably records a finished session. Invoked only after a stop.
type Archiver interface {
	SaveCompleted(ctx context.Context, summary models.FinalSummary) error
}

// ActiveCache mirrors live sessions for other services to read.
type ActiveCache interface {
	Save(ctx context.Context, snap models.SessionSnapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// Defaults supply rate and charger power when a start request omits them.
type Defaults struct {
	RatePerKwh     float64
	ChargerPowerKw float64
}

// StartParams carries a start request. RatePerKwh and ChargerPowerKw fall back to
// configured defaults when not positive.
type StartParams struct {
	OwnerRef              string
	VehicleReg            string
	BatteryCapacityKwh    float64
	InitialBatteryPercent float64
	RatePerKwh            float64
	ChargerPowerKw        float64
	ConnectionID          string
	ObserverKey           string
	StationName           string
	DisplayName           string
}

// Engine is the charging session domain logic: creation, tick-driven metering,
// stop/resume transitions, teardown.
type Engine struct {
	store    *store.SessionStore
	clock    *Clock
	emitter  Emitter
	archiver Archiver
	cache    ActiveCache
	defaults Defaults
	logger   *zap.Logger
}

// NewEngine builds the engine. archiver and cache may be nil when the collaborator
// is not configured.
func NewEngine(st *store.SessionStore, clock *Clock, defaults Defaults, logger *zap.Logger) *Engine {
	return &Engine{
		store:    st,
		clock:    clock,
		defaults: defaults,
		logger:   logger,
	}
}

// SetEmitter attaches the reading sink. Must be called before Start.
func (e *Engine) SetEmitter(emitter Emitter) {
	e.emitter = emitter
}

// SetArchiver attaches the persistence collaborator.
func (e *Engine) SetArchiver(a Archiver) {
	e.archiver = a
}

// SetActiveCache attaches the live session mirror.
func (e *Engine) SetActiveCache(c ActiveCache) {
	e.cache = c
}

// Start validates the request, creates a session, and schedules its meter.
func (e *Engine) Start(ctx context.Context, params StartParams) (models.SessionSnapshot, error) {
	if params.BatteryCapacityKwh <= 0 || math.IsNaN(params.BatteryCapacityKwh) || math.IsInf(params.BatteryCapacityKwh, 0) {
		return models.SessionSnapshot{}, ErrInvalidInput
	}
	if params.InitialBatteryPercent < 0 || params.InitialBatteryPercent > 100 {
		return models.SessionSnapshot{}, ErrInvalidInput
	}

	rate := params.RatePerKwh
	if rate <= 0 {
		rate = e.defaults.RatePerKwh
	}
	power := params.ChargerPowerKw
	if power <= 0 {
		power = e.defaults.ChargerPowerKw
	}

	s := e.store.Create(store.CreateParams{
		OwnerRef:              params.OwnerRef,
		VehicleReg:            params.VehicleReg,
		StationName:           params.StationName,
		DisplayName:           params.DisplayName,
		BatteryCapacityKwh:    params.BatteryCapacityKwh,
		InitialBatteryPercent: params.InitialBatteryPercent,
		RatePerKwh:            rate,
		ChargerPowerKw:        power,
		ConnectionID:          params.ConnectionID,
		ObserverKey:           params.ObserverKey,
	})

	if err := e.schedule(s); err != nil {
		// A fresh session cannot hold a timer yet; treat as fatal to this operation.
		e.store.Delete(s.ID())
		e.logger.Error("failed to schedule fresh session", zap.String("session_id", s.ID()), zap.Error(err))
		return models.SessionSnapshot{}, err
	}

	snap := s.Snapshot()
	e.mirrorSave(ctx, snap)
	metrics.ObserveActiveSessions(e.store.Count())

	e.logger.Info("charging session started",
		zap.String("session_id", s.ID()),
		zap.String("owner_ref", params.OwnerRef),
		zap.String("vehicle_reg", params.VehicleReg),
		zap.Float64("rate_per_kwh", rate),
		zap.Float64("charger_power_kw", power))
	return snap, nil
}

// Reading returns the current meter snapshot without mutating state.
func (e *Engine) Reading(sessionID string) (models.Reading, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return models.Reading{}, ErrNotFound
	}
	return buildReading(s.Snapshot()), nil
}

// Snapshot returns the raw session state.
func (e *Engine) Snapshot(sessionID string) (models.SessionSnapshot, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return models.SessionSnapshot{}, ErrNotFound
	}
	return s.Snapshot(), nil
}

// Stop cancels the session's meter and returns the final summary. The record stays
// addressable so a later resume can pick it up.
func (e *Engine) Stop(ctx context.Context, sessionID string) (models.FinalSummary, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return models.FinalSummary{}, ErrNotFound
	}

	h := s.DetachTimer()
	if h != nil {
		h.Cancel()
	}

	snap := s.Snapshot()
	summary := buildSummary(snap)

	// Archive only on the running->stopped transition so a repeated stop does not
	// produce duplicate records.
	if h != nil {
		e.archive(ctx, summary)
	}
	e.mirrorDelete(ctx, sessionID)

	e.logger.Info("charging session stopped",
		zap.String("session_id", sessionID),
		zap.Float64("total_kwh", summary.TotalKwh),
		zap.Float64("total_amount", summary.TotalAmount))
	return summary, nil
}

// Resume schedules a new meter for a stopped session, continuing from its
// accumulated totals. A session whose timer is still live is rejected.
func (e *Engine) Resume(ctx context.Context, sessionID, connectionID string) (models.SessionSnapshot, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return models.SessionSnapshot{}, ErrNotFound
	}

	if err := e.schedule(s); err != nil {
		e.logger.Warn("resume rejected", zap.String("session_id", sessionID), zap.Error(err))
		return models.SessionSnapshot{}, err
	}
	if connectionID != "" {
		s.Rebind(connectionID)
	}

	snap := s.Snapshot()
	e.mirrorSave(ctx, snap)

	e.logger.Info("charging session resumed", zap.String("session_id", sessionID))
	return snap, nil
}

// Delete cancels any live timer and removes the session. Idempotent.
func (e *Engine) Delete(ctx context.Context, sessionID string) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return
	}

	h := s.DetachTimer()
	if h != nil {
		h.Cancel()
	}
	e.store.Delete(sessionID)
	e.mirrorDelete(ctx, sessionID)
	metrics.ObserveActiveSessions(e.store.Count())

	e.logger.Info("charging session deleted", zap.String("session_id", sessionID))
}

// TeardownConnection deletes every session owned by the given connection. Called on
// transport disconnect before the connection is forgotten.
func (e *Engine) TeardownConnection(ctx context.Context, connectionID string) {
	for _, s := range e.store.List() {
		if s.ConnectionID() == connectionID {
			e.Delete(ctx, s.ID())
		}
	}
}

// ActiveCount returns the number of live sessions.
func (e *Engine) ActiveCount() int {
	return e.store.Count()
}

// ActiveSessions returns snapshots of all live sessions.
func (e *Engine) ActiveSessions() []models.SessionSnapshot {
	sessions := e.store.List()
	out := make([]models.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

func (e *Engine) schedule(s *store.Session) error {
	h := e.clock.Schedule(e.tickFor(s))
	if !s.AttachTimer(h) {
		h.Cancel()
		return ErrTimerConflict
	}
	return nil
}

// tickFor builds the per-session tick handler. A tick for a session that vanished
// from the store cancels its own schedule; a tick that raced with a stop advances
// nothing and waits to be cancelled.
func (e *Engine) tickFor(s *store.Session) TickFunc {
	return func(interval time.Duration) bool {
		if _, ok := e.store.Get(s.ID()); !ok {
			return false
		}

		snap, ok := s.Advance(interval)
		if !ok {
			return true
		}

		metrics.CountReading(snap.ChargerPowerKw * interval.Hours())
		if e.emitter != nil {
			e.emitter.EmitReading(snap, buildReading(snap))
		}
		return true
	}
}

func (e *Engine) archive(ctx context.Context, summary models.FinalSummary) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.SaveCompleted(ctx, summary); err != nil {
		e.logger.Warn("failed to archive finished session",
			zap.String("session_id", summary.SessionID), zap.Error(err))
	}
}

func (e *Engine) mirrorSave(ctx context.Context, snap models.SessionSnapshot) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Save(ctx, snap); err != nil {
		e.logger.Warn("failed to mirror active session", zap.String("session_id", snap.ID), zap.Error(err))
	}
}

func (e *Engine) mirrorDelete(ctx context.Context, sessionID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, sessionID); err != nil {
		e.logger.Warn("failed to drop active session mirror", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func buildReading(snap models.SessionSnapshot) models.Reading {
	return models.Reading{
		SessionID:             snap.ID,
		SecondsElapsed:        snap.SecondsElapsed,
		TotalKwh:              round2(snap.TotalEnergyKwh),
		TotalCost:             round2(snap.TotalCost),
		CurrentPowerKw:        snap.ChargerPowerKw,
		ChargePercentage:      round1(chargePercentage(snap)),
		InitialBatteryPercent: snap.InitialBatteryPercent,
	}
}

func buildSummary(snap models.SessionSnapshot) models.FinalSummary {
	return models.FinalSummary{
		SessionID:             snap.ID,
		OwnerRef:              snap.OwnerRef,
		VehicleReg:            snap.VehicleReg,
		TotalKwh:              round2(snap.TotalEnergyKwh),
		TotalAmount:           round2(snap.TotalCost),
		DurationSeconds:       round2(snap.SecondsElapsed),
		ChargePercentage:      round1(chargePercentage(snap)),
		InitialBatteryPercent: snap.InitialBatteryPercent,
		StartTime:             snap.StartedAt.Format(time.RFC3339),
	}
}

func chargePercentage(snap models.SessionSnapshot) float64 {
	if snap.BatteryCapacityKwh <= 0 {
		return 0
	}
	pct := snap.TotalEnergyKwh / snap.BatteryCapacityKwh * 100
	return math.Min(100, pct)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
