package realtime

import (
	"sync"
)

// Sink receives events destined for one connected session. Implementations
// must not block; the websocket layer backs this with a buffered send channel.
type Sink interface {
	Deliver(event []byte)
	Close()
}

// Session is one live real-time connection bound to a user. A user may hold
// several sessions at once (multiple devices).
type Session struct {
	ID     string
	UserID string
	Sink   Sink

	mu    sync.Mutex
	rooms map[string]struct{}
}

// NewSession binds a connection sink to a user identity.
func NewSession(id, userID string, sink Sink) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		Sink:   sink,
		rooms:  make(map[string]struct{}),
	}
}

func (s *Session) joinRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = struct{}{}
}

func (s *Session) leaveRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

// Rooms returns the rooms the session is currently joined to.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Registry tracks connected sessions and their room memberships. State is
// in-memory only; clients rebuild it by re-joining after reconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove drops a session, implicitly leaving all its rooms.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Get looks up a session by ID; nil if not connected.
func (r *Registry) Get(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

// Count reports the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
