package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"rupeeflow/internal/fanout"
	"rupeeflow/internal/meter"
	"rupeeflow/internal/store"
)

type recordedEvent struct {
	event string
	data  any
}

type fakeClient struct {
	id       string
	ownerRef string

	mu       sync.Mutex
	events   []recordedEvent
	sessions map[string]struct{}
}

func newFakeClient(id, ownerRef string) *fakeClient {
	return &fakeClient{id: id, ownerRef: ownerRef, sessions: make(map[string]struct{})}
}

func (f *fakeClient) ID() string       { return f.id }
func (f *fakeClient) OwnerRef() string { return f.ownerRef }

func (f *fakeClient) SendJSON(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, data: data})
	return nil
}

func (f *fakeClient) AddSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = struct{}{}
}

func (f *fakeClient) RemoveSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
}

func (f *fakeClient) OwnedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		out = append(out, id)
	}
	return out
}

func (f *fakeClient) lastEvent(t *testing.T) recordedEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		t.Fatal("no events recorded")
	}
	return f.events[len(f.events)-1]
}

func newTestProcessor(t *testing.T) (*CommandProcessor, *meter.Engine, *fanout.Gateway) {
	t.Helper()
	logger := zap.NewNop()
	engine := meter.NewEngine(store.NewSessionStore(), meter.NewClock(5*time.Millisecond), meter.Defaults{
		RatePerKwh:     12,
		ChargerPowerKw: 7.4,
	}, logger)
	gateway := fanout.NewGateway(logger)
	return NewCommandProcessor(engine, gateway, logger), engine, gateway
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal command data: %v", err)
	}
	raw, err := json.Marshal(CommandEnvelope{Event: event, Data: payload})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func startSession(t *testing.T, p *CommandProcessor, c *fakeClient) string {
	t.Helper()
	p.Process(context.Background(), c, frame(t, CommandStart, StartCommand{
		VehicleReg:         "MH-01-AB-1234",
		BatteryCapacityKwh: 60,
	}))

	ev := c.lastEvent(t)
	if ev.event != EventStarted {
		t.Fatalf("expected started event, got %s (%v)", ev.event, ev.data)
	}
	started, ok := ev.data.(StartedEvent)
	if !ok || started.SessionID == "" {
		t.Fatalf("unexpected started payload: %v", ev.data)
	}
	return started.SessionID
}

func TestStartCommandCreatesOwnedSession(t *testing.T) {
	p, engine, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	sessionID := startSession(t, p, c)
	defer engine.Delete(context.Background(), sessionID)

	if len(c.OwnedSessions()) != 1 {
		t.Fatalf("expected connection to own 1 session, got %d", len(c.OwnedSessions()))
	}

	snap, err := engine.Snapshot(sessionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.OwnerRef != "u1" {
		t.Fatalf("expected owner ref from connection, got %q", snap.OwnerRef)
	}
	if snap.ConnectionID != "conn-1" {
		t.Fatalf("expected session bound to connection, got %q", snap.ConnectionID)
	}
}

func TestStartCommandRejectsInvalidCapacity(t *testing.T) {
	p, engine, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	p.Process(context.Background(), c, frame(t, CommandStart, StartCommand{
		VehicleReg:         "MH-01-AB-1234",
		BatteryCapacityKwh: -5,
	}))

	ev := c.lastEvent(t)
	if ev.event != EventError {
		t.Fatalf("expected error event, got %s", ev.event)
	}
	if engine.ActiveCount() != 0 {
		t.Fatalf("expected no session created, got %d", engine.ActiveCount())
	}
}

func TestStopCommandReturnsSummary(t *testing.T) {
	p, engine, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	sessionID := startSession(t, p, c)
	defer engine.Delete(context.Background(), sessionID)

	p.Process(context.Background(), c, frame(t, CommandStop, StopCommand{SessionID: sessionID}))

	ev := c.lastEvent(t)
	if ev.event != EventStopped {
		t.Fatalf("expected stopped event, got %s", ev.event)
	}
}

func TestStopUnknownSessionReportsError(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	p.Process(context.Background(), c, frame(t, CommandStop, StopCommand{SessionID: "nonexistent-id"}))

	ev := c.lastEvent(t)
	if ev.event != EventError {
		t.Fatalf("expected error event, got %s", ev.event)
	}
}

func TestResumeAfterStop(t *testing.T) {
	p, engine, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	sessionID := startSession(t, p, c)
	defer engine.Delete(context.Background(), sessionID)

	p.Process(context.Background(), c, frame(t, CommandStop, StopCommand{SessionID: sessionID}))
	p.Process(context.Background(), c, frame(t, CommandResume, ResumeCommand{SessionID: sessionID}))

	ev := c.lastEvent(t)
	if ev.event != EventResumed {
		t.Fatalf("expected resumed event, got %s (%v)", ev.event, ev.data)
	}
}

func TestResumeWhileRunningSendsResumeError(t *testing.T) {
	p, engine, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	sessionID := startSession(t, p, c)
	defer engine.Delete(context.Background(), sessionID)

	p.Process(context.Background(), c, frame(t, CommandResume, ResumeCommand{SessionID: sessionID}))

	ev := c.lastEvent(t)
	if ev.event != EventResumeError {
		t.Fatalf("expected resumeError event, got %s", ev.event)
	}
}

func TestRegisterObserverSubscribesConnection(t *testing.T) {
	p, _, gateway := newTestProcessor(t)
	c := newFakeClient("conn-1", "operator-1")

	p.Process(context.Background(), c, frame(t, CommandRegisterObserver, RegisterObserverCommand{ObserverKey: "station-1"}))

	if gateway.ObserverCount("station-1") != 1 {
		t.Fatalf("expected 1 observer, got %d", gateway.ObserverCount("station-1"))
	}

	gateway.Broadcast("station-1", EventReading, map[string]any{"total_kwh": 0.5})
	ev := c.lastEvent(t)
	if ev.event != EventReading {
		t.Fatalf("expected reading delivered to observer, got %s", ev.event)
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	p.Process(context.Background(), c, frame(t, "chargeHarder", nil))

	ev := c.lastEvent(t)
	if ev.event != EventError {
		t.Fatalf("expected error event, got %s", ev.event)
	}
}

func TestMalformedFrameReportsError(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	c := newFakeClient("conn-1", "u1")

	p.Process(context.Background(), c, []byte("not json"))

	ev := c.lastEvent(t)
	if ev.event != EventError {
		t.Fatalf("expected error event, got %s", ev.event)
	}
}
