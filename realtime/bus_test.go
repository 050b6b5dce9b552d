package realtime

import (
	"sync"
	"testing"
)

// captureSink records delivered events.
type captureSink struct {
	mu     sync.Mutex
	events [][]byte
	closed bool
}

func (s *captureSink) Deliver(event []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *captureSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = string(e)
	}
	return out
}

func TestMemoryBusDeliversToJoinedSessions(t *testing.T) {
	bus := NewMemoryBus()

	sinkA := &captureSink{}
	sinkB := &captureSink{}
	sessA := NewSession("s1", "alice", sinkA)
	sessB := NewSession("s2", "bob", sinkB)

	if err := bus.Join("room1", sessA); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := bus.Join("room1", sessB); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := bus.Publish("room1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, sink := range map[string]*captureSink{"a": sinkA, "b": sinkB} {
		got := sink.received()
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("session %s: got %v, want [hello]", name, got)
		}
	}
}

func TestMemoryBusNoDeliveryAfterLeave(t *testing.T) {
	bus := NewMemoryBus()

	sink := &captureSink{}
	sess := NewSession("s1", "alice", sink)
	if err := bus.Join("room1", sess); err != nil {
		t.Fatalf("join: %v", err)
	}
	bus.Leave("room1", "s1")

	if err := bus.Publish("room1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := sink.received(); len(got) != 0 {
		t.Errorf("expected no deliveries after leave, got %v", got)
	}
	if len(sess.Rooms()) != 0 {
		t.Errorf("session should have left all rooms, still in %v", sess.Rooms())
	}
}

func TestMemoryBusNoRetroactiveDelivery(t *testing.T) {
	bus := NewMemoryBus()

	if err := bus.Publish("room1", []byte("early")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	sink := &captureSink{}
	sess := NewSession("s1", "alice", sink)
	if err := bus.Join("room1", sess); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := sink.received(); len(got) != 0 {
		t.Errorf("joining must not replay past events, got %v", got)
	}
}

func TestMemoryBusOrderedDelivery(t *testing.T) {
	bus := NewMemoryBus()

	sink := &captureSink{}
	sess := NewSession("s1", "alice", sink)
	if err := bus.Join("room1", sess); err != nil {
		t.Fatalf("join: %v", err)
	}

	want := []string{"one", "two", "three", "four"}
	for _, msg := range want {
		if err := bus.Publish("room1", []byte(msg)); err != nil {
			t.Fatalf("publish %s: %v", msg, err)
		}
	}

	got := sink.received()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryRemoveDropsSession(t *testing.T) {
	reg := NewRegistry()

	sess := NewSession("s1", "alice", &captureSink{})
	reg.Add(sess)
	if reg.Get("s1") != sess {
		t.Fatal("expected session to be registered")
	}
	if reg.Count() != 1 {
		t.Fatalf("count = %d, want 1", reg.Count())
	}

	reg.Remove("s1")
	if reg.Get("s1") != nil {
		t.Error("expected session to be gone after remove")
	}
	if reg.Count() != 0 {
		t.Errorf("count = %d, want 0", reg.Count())
	}
}
