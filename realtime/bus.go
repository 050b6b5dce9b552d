package realtime

import (
	"sync"
)

// Bus fans events out to every session joined to a room. Implementations
// must deliver events published to one room in publish order; delivery is
// at most once per joined session.
type Bus interface {
	Join(room string, s *Session) error
	Leave(room string, sessionID string)
	Publish(room string, event []byte) error
	Close() error
}

// MemoryBus is the in-process Bus. It is the default for single-node
// deployments and the fake for tests.
type MemoryBus struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Session
}

// NewMemoryBus constructs an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{rooms: make(map[string]map[string]*Session)}
}

func (b *MemoryBus) Join(room string, s *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		b.rooms[room] = members
	}
	members[s.ID] = s
	s.joinRoom(room)
	return nil
}

func (b *MemoryBus) Leave(room string, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if members, ok := b.rooms[room]; ok {
		if s, ok := members[sessionID]; ok {
			s.leaveRoom(room)
		}
		delete(members, sessionID)
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
}

// Publish delivers the event to every currently joined session. Callers that
// need per-room ordering must serialize their publishes.
func (b *MemoryBus) Publish(room string, event []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.rooms[room] {
		s.Sink.Deliver(event)
	}
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = make(map[string]map[string]*Session)
	return nil
}
