// internal/conn/registry.go
package conn

import (
	"sync"

	"github.com/google/uuid"
)

// state holds the back-references a connection currently owns: at most one
// room and at most one matchmaking entry. The registry never owns room or
// queue data itself; it exists so disconnect cleanup is an O(1) lookup.
type state struct {
	roomID  string
	inQueue bool
}

// Registry tracks every live connection's back-references.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*state
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]*state),
	}
}

// Add registers a freshly accepted connection with no room and no queue entry.
func (r *Registry) Add(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[id]; !exists {
		r.conns[id] = &state{}
	}
}

// SetRoom records that id now occupies roomID. No-op for unknown connections.
func (r *Registry) SetRoom(id uuid.UUID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.conns[id]; ok {
		s.roomID = roomID
	}
}

// ClearRoom drops the room back-reference, but only if it still points at
// roomID. A stale clear from a duplicate leave must not erase a newer room.
func (r *Registry) ClearRoom(id uuid.UUID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.conns[id]; ok && s.roomID == roomID {
		s.roomID = ""
	}
}

// SetQueued flips the in-queue flag. No-op for unknown connections.
func (r *Registry) SetQueued(id uuid.UUID, queued bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.conns[id]; ok {
		s.inQueue = queued
	}
}

// Lookup returns the room id (empty if none), the in-queue flag, and whether
// the connection is known at all.
func (r *Registry) Lookup(id uuid.UUID) (roomID string, inQueue bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.conns[id]
	if !ok {
		return "", false, false
	}
	return s.roomID, s.inQueue, true
}

// Remove forgets the connection entirely. Safe to call more than once.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Count returns the number of registered live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
