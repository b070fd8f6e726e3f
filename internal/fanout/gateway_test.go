package fanout

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeSender struct {
	id string

	mu     sync.Mutex
	events []string
	err    error
}

func newFakeSender(id string) *fakeSender {
	return &fakeSender{id: id}
}

func (f *fakeSender) ID() string {
	return f.id
}

func (f *fakeSender) SendJSON(event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSender) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestBroadcastReachesAllObservers(t *testing.T) {
	g := NewGateway(zap.NewNop())
	connA := newFakeSender("conn-a")
	connB := newFakeSender("conn-b")

	g.Register("op-1", connA)
	g.Register("op-1", connB)

	g.Broadcast("op-1", "reading", map[string]any{"total_kwh": 1.5})

	if connA.eventCount() != 1 || connB.eventCount() != 1 {
		t.Fatalf("expected both observers to receive, got a=%d b=%d", connA.eventCount(), connB.eventCount())
	}
}

func TestUnregisterRemovesFromEveryKey(t *testing.T) {
	g := NewGateway(zap.NewNop())
	connA := newFakeSender("conn-a")
	connB := newFakeSender("conn-b")

	g.Register("op-1", connA)
	g.Register("op-1", connB)
	g.Register("op-2", connA)

	g.Unregister(connA)

	g.Broadcast("op-1", "reading", nil)
	g.Broadcast("op-2", "reading", nil)

	if connA.eventCount() != 0 {
		t.Fatalf("unregistered connection still received %d events", connA.eventCount())
	}
	if connB.eventCount() != 1 {
		t.Fatalf("expected remaining observer to receive 1 event, got %d", connB.eventCount())
	}
	if g.ObserverCount("op-2") != 0 {
		t.Fatal("expected emptied key to be dropped")
	}
}

func TestBroadcastFailureDoesNotBlockOthers(t *testing.T) {
	g := NewGateway(zap.NewNop())
	connA := newFakeSender("conn-a")
	connB := newFakeSender("conn-b")
	connA.setErr(errors.New("boom"))

	g.Register("op-1", connA)
	g.Register("op-1", connB)

	g.Broadcast("op-1", "reading", nil)

	if connB.eventCount() != 1 {
		t.Fatalf("delivery to healthy observer blocked by failing one: got %d", connB.eventCount())
	}
}

func TestDuplicateRegistrationDoesNotDoubleDeliver(t *testing.T) {
	g := NewGateway(zap.NewNop())
	conn := newFakeSender("conn-a")

	g.Register("op-1", conn)
	g.Register("op-1", conn)

	g.Broadcast("op-1", "reading", nil)

	if conn.eventCount() != 1 {
		t.Fatalf("expected single delivery, got %d", conn.eventCount())
	}
	if g.ObserverCount("op-1") != 1 {
		t.Fatalf("expected one registration, got %d", g.ObserverCount("op-1"))
	}
}

func TestEmptyKeyIsIgnored(t *testing.T) {
	g := NewGateway(zap.NewNop())
	conn := newFakeSender("conn-a")

	g.Register("", conn)
	g.Broadcast("", "reading", nil)

	if conn.eventCount() != 0 {
		t.Fatalf("expected no delivery for empty key, got %d", conn.eventCount())
	}
}
