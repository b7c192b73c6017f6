// internal/handlers/disconnect.go
package handlers

import (
	"context"

	"chessmatch/internal/conn"
)

// HandleDisconnect unwinds everything a connection holds when its transport
// terminates. It may run moments after an explicit leaveRoom or
// cancelMatchmaking handled the same state; every step tolerates
// already-absent state, so the cascade is safe to run exactly once per
// connection regardless of what preceded it.
func (s *Server) HandleDisconnect(ctx context.Context, c *conn.Conn) {
	s.Queue.Cancel(c.ID)

	if roomID, _, ok := s.Registry.Lookup(c.ID); ok && roomID != "" {
		s.Rooms.Leave(roomID, c.ID)
	}

	s.Registry.Remove(c.ID)
	s.Presence.RecordDisconnect(ctx)
}
