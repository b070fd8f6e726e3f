package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rupeeflow/internal/models"
)

var idGenerator = generateID

// TimerHandle is the cancellable tick registration a running session owns. The
// concrete type lives in the meter package; the store only needs to hand it back
// on stop and delete.
type TimerHandle interface {
	Cancel()
}

// CreateParams carries validated inputs for a new session.
type CreateParams struct {
	OwnerRef              string
	VehicleReg            string
	StationName           string
	DisplayName           string
	BatteryCapacityKwh    float64
	InitialBatteryPercent float64
	RatePerKwh            float64
	ChargerPowerKw        float64
	ConnectionID          string
	ObserverKey           string
}

// Session is a live charging session. All mutation goes through methods holding the
// session mutex; callers only ever see immutable snapshots.
type Session struct {
	mu sync.Mutex

	id                    string
	ownerRef              string
	vehicleReg            string
	stationName           string
	displayName           string
	batteryCapacityKwh    float64
	initialBatteryPercent float64
	ratePerKwh            float64
	chargerPowerKw        float64
	connectionID          string
	observerKey           string

	status         models.SessionStatus
	startedAt      time.Time
	secondsElapsed float64
	totalEnergyKwh float64
	totalCost      float64

	timer TimerHandle
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// OwnerRef returns the identifier of the user who started the session.
func (s *Session) OwnerRef() string {
	return s.ownerRef
}

// ConnectionID returns the owning transport connection id.
func (s *Session) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

// ObserverKey returns the fan-out key observers watch this session under.
func (s *Session) ObserverKey() string {
	return s.observerKey
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.SessionSnapshot {
	return models.SessionSnapshot{
		ID:                    s.id,
		OwnerRef:              s.ownerRef,
		VehicleReg:            s.vehicleReg,
		StationName:           s.stationName,
		DisplayName:           s.displayName,
		BatteryCapacityKwh:    s.batteryCapacityKwh,
		InitialBatteryPercent: s.initialBatteryPercent,
		RatePerKwh:            s.ratePerKwh,
		ChargerPowerKw:        s.chargerPowerKw,
		Status:                s.status,
		StartedAt:             s.startedAt,
		SecondsElapsed:        s.secondsElapsed,
		TotalEnergyKwh:        s.totalEnergyKwh,
		TotalCost:             s.totalCost,
		ObserverKey:           s.observerKey,
		ConnectionID:          s.connectionID,
	}
}

// Advance moves the meter forward by one tick interval. It returns false without
// mutating anything when the session is not running, which lets a tick that raced
// with a stop or delete fall through harmlessly.
func (s *Session) Advance(interval time.Duration) (models.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusRunning {
		return models.SessionSnapshot{}, false
	}

	s.secondsElapsed += interval.Seconds()
	s.totalEnergyKwh += s.chargerPowerKw * interval.Hours()
	s.totalCost = s.totalEnergyKwh * s.ratePerKwh

	return s.snapshotLocked(), true
}

// AttachTimer hands ownership of a tick registration to the session and marks it
// running. Attaching while a timer is already live is a programming error surfaced
// to the caller; the session is left untouched.
func (s *Session) AttachTimer(h TimerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		return false
	}
	s.timer = h
	s.status = models.SessionStatusRunning
	return true
}

// DetachTimer marks the session stopped and returns the timer handle for the caller
// to cancel. Returns nil when no timer is attached.
func (s *Session) DetachTimer() TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.timer
	s.timer = nil
	s.status = models.SessionStatusStopped
	return h
}

// Rebind points a resumed session at the connection that picked it back up.
func (s *Session) Rebind(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectionID = connectionID
}

// SessionStore owns the authoritative table of live sessions keyed by id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore returns an initialized store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a fresh id, initializes accumulators to zero, and stores the
// session. Ids carry an epoch-millis prefix so they are never reused.
func (st *SessionStore) Create(params CreateParams) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:                    idGenerator(now),
		ownerRef:              params.OwnerRef,
		vehicleReg:            params.VehicleReg,
		stationName:           params.StationName,
		displayName:           params.DisplayName,
		batteryCapacityKwh:    params.BatteryCapacityKwh,
		initialBatteryPercent: params.InitialBatteryPercent,
		ratePerKwh:            params.RatePerKwh,
		chargerPowerKw:        params.ChargerPowerKw,
		connectionID:          params.ConnectionID,
		observerKey:           params.ObserverKey,
		status:                models.SessionStatusStopped,
		startedAt:             now,
	}

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get returns the session for id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes the session. Deleting an unknown id is a no-op.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// List returns all live sessions.
func (st *SessionStore) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live sessions.
func (st *SessionStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func generateID(now time.Time) string {
	suffix := uuid.NewString()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
