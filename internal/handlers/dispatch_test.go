// internal/handlers/dispatch_test.go
package handlers

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessmatch/internal/conn"
	"chessmatch/internal/presence"
)

// recordingSink counts collaborator calls so tests can assert the cascade
// fired without any real Postgres/Redis.
type recordingSink struct {
	mu          sync.Mutex
	connects    int
	disconnects int
}

func (r *recordingSink) RecordConnect(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
}

func (r *recordingSink) RecordDisconnect(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
}

func (r *recordingSink) Stats(context.Context) (presence.Stats, error) {
	return presence.Stats{}, nil
}

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(logger, presence.Noop{})
}

func addConn(s *Server) *conn.Conn {
	c := conn.New("visitor", func() {})
	s.Registry.Add(c.ID)
	return c
}

func send(s *Server, c *conn.Conn, packet map[string]interface{}) {
	handleClientMessage(s, c, packet)
}

func recv(t *testing.T, c *conn.Conn) map[string]interface{} {
	t.Helper()
	select {
	case m := <-c.Out:
		return m
	default:
		t.Fatalf("expected a message")
		return nil
	}
}

func drain(c *conn.Conn) {
	for len(c.Out) > 0 {
		<-c.Out
	}
}

func TestCreateRoomSignal(t *testing.T) {
	s := newTestServer()
	c := addConn(s)

	send(s, c, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	m := recv(t, c)
	assert.Equal(t, "roomCreated", m["type"])
	assert.Equal(t, "ABC123", m["roomId"])

	send(s, c, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	m = recv(t, c)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "roomExists", m["kind"])
}

func TestJoinRoomErrors(t *testing.T) {
	s := newTestServer()
	creator, joiner, third := addConn(s), addConn(s), addConn(s)

	send(s, joiner, map[string]interface{}{"type": "joinRoom", "roomId": "NOPE99"})
	m := recv(t, joiner)
	assert.Equal(t, "roomNotFound", m["kind"])

	send(s, creator, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, joiner, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(creator)
	drain(joiner)

	send(s, third, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	m = recv(t, third)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "roomFull", m["kind"])
}

func TestCreateRoomVacatesPreviousSeat(t *testing.T) {
	s := newTestServer()
	p1, p2 := addConn(s), addConn(s)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(p1)
	drain(p2)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "XYZ789"})

	assert.Equal(t, "roomCreated", recv(t, p1)["type"])
	assert.Equal(t, "opponentDisconnected", recv(t, p2)["type"])

	old, ok := s.Rooms.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, 1, old.OccupantCount(), "old room must not keep a ghost seat")

	roomID, _, ok := s.Registry.Lookup(p1.ID)
	require.True(t, ok)
	assert.Equal(t, "XYZ789", roomID)
}

func TestJoinRoomVacatesPreviousSeat(t *testing.T) {
	s := newTestServer()
	p1, p2, q1 := addConn(s), addConn(s), addConn(s)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	send(s, q1, map[string]interface{}{"type": "createRoom", "roomId": "XYZ789"})
	for _, c := range []*conn.Conn{p1, p2, q1} {
		drain(c)
	}

	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "XYZ789"})

	assert.Equal(t, "roomJoined", recv(t, p2)["type"])
	assert.Equal(t, "opponentDisconnected", recv(t, p1)["type"])
	assert.Equal(t, "opponentJoined", recv(t, q1)["type"])

	roomID, _, _ := s.Registry.Lookup(p2.ID)
	assert.Equal(t, "XYZ789", roomID)

	// A failed join must not evict anyone from the current room.
	send(s, p1, map[string]interface{}{"type": "joinRoom", "roomId": "NOPE99"})
	assert.Equal(t, "roomNotFound", recv(t, p1)["kind"])
	roomID, _, _ = s.Registry.Lookup(p1.ID)
	assert.Equal(t, "ABC123", roomID)
}

func TestFindMatchVacatesCurrentSeat(t *testing.T) {
	s := newTestServer()
	p1, p2 := addConn(s), addConn(s)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(p1)
	drain(p2)

	send(s, p1, map[string]interface{}{"type": "findMatch", "timeControl": "5+0"})

	assert.Equal(t, "searching", recv(t, p1)["type"])
	assert.Equal(t, "opponentDisconnected", recv(t, p2)["type"])

	roomID, inQueue, ok := s.Registry.Lookup(p1.ID)
	require.True(t, ok)
	assert.Empty(t, roomID)
	assert.True(t, inQueue)
}

func TestMoveRelaysToOpponentOnly(t *testing.T) {
	s := newTestServer()
	creator, joiner := addConn(s), addConn(s)

	send(s, creator, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, joiner, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(creator)
	drain(joiner)

	send(s, creator, map[string]interface{}{
		"type": "move", "roomId": "ABC123",
		"from": "g1", "to": "f3", "moveType": "normal",
	})

	m := recv(t, joiner)
	assert.Equal(t, "opponentMove", m["type"])
	assert.Equal(t, "f3", m["to"])
	assert.Empty(t, creator.Out)
}

func TestTimeControlSetStoresAndAnnounces(t *testing.T) {
	s := newTestServer()
	creator, joiner := addConn(s), addConn(s)

	send(s, creator, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	drain(creator)

	send(s, creator, map[string]interface{}{"type": "timeControlSet", "roomId": "ABC123", "timeControl": "5+3"})

	r, ok := s.Rooms.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, "5+3", r.TimeControl)

	// Joiner arriving later gets the stored value synced.
	send(s, joiner, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	m := recv(t, joiner)
	assert.Equal(t, "timeControlSync", m["type"])
	assert.Equal(t, "5+3", m["timeControl"])
}

func TestFindMatchThroughDispatch(t *testing.T) {
	s := newTestServer()
	a, b := addConn(s), addConn(s)

	send(s, a, map[string]interface{}{"type": "findMatch", "timeControl": "5+0"})
	assert.Equal(t, "searching", recv(t, a)["type"])

	send(s, b, map[string]interface{}{"type": "findMatch", "timeControl": "10+0", "ignoreTime": true})

	ma := recv(t, a)
	mb := recv(t, b)
	assert.Equal(t, "matchFound", ma["type"])
	assert.Equal(t, "white", ma["color"])
	assert.Equal(t, "black", mb["color"])
	assert.Equal(t, "5+0", mb["timeControl"])
}

func TestPingPong(t *testing.T) {
	s := newTestServer()
	c := addConn(s)
	send(s, c, map[string]interface{}{"type": "ping"})
	assert.Equal(t, "pong", recv(t, c)["type"])
}

func TestUnknownAndMalformedSignalsIgnored(t *testing.T) {
	s := newTestServer()
	c := addConn(s)

	send(s, c, map[string]interface{}{"type": "castleKingside"})
	send(s, c, map[string]interface{}{"type": "createRoom"})              // missing roomId
	send(s, c, map[string]interface{}{"type": "createRoom", "roomId": 7}) // wrong type
	send(s, c, map[string]interface{}{})                                  // no type at all

	assert.Empty(t, c.Out)
	assert.Equal(t, 0, s.Rooms.Count())
}

func TestDisconnectCascade(t *testing.T) {
	s := newTestServer()
	sink := &recordingSink{}
	s.Presence = sink
	p1, p2 := addConn(s), addConn(s)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(p1)
	drain(p2)

	s.HandleDisconnect(context.Background(), p1)

	assert.Equal(t, "opponentDisconnected", recv(t, p2)["type"])
	_, _, ok := s.Registry.Lookup(p1.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, sink.disconnects)

	r, ok := s.Rooms.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, 1, r.OccupantCount())
}

func TestDisconnectAfterExplicitLeaveIsIdempotent(t *testing.T) {
	s := newTestServer()
	p1, p2 := addConn(s), addConn(s)

	send(s, p1, map[string]interface{}{"type": "createRoom", "roomId": "ABC123"})
	send(s, p2, map[string]interface{}{"type": "joinRoom", "roomId": "ABC123"})
	drain(p1)
	drain(p2)

	send(s, p1, map[string]interface{}{"type": "leaveRoom", "roomId": "ABC123"})
	assert.Equal(t, "opponentDisconnected", recv(t, p2)["type"])

	// Transport close arrives moments later; nothing left to undo.
	s.HandleDisconnect(context.Background(), p1)
	assert.Empty(t, p2.Out, "no duplicate opponentDisconnected")
}

func TestDisconnectClearsQueueEntry(t *testing.T) {
	s := newTestServer()
	c := addConn(s)

	send(s, c, map[string]interface{}{"type": "findMatch", "timeControl": "5+0"})
	drain(c)
	send(s, c, map[string]interface{}{"type": "cancelMatchmaking"})
	s.HandleDisconnect(context.Background(), c)

	assert.Equal(t, 0, s.Queue.Waiting())
	_, _, ok := s.Registry.Lookup(c.ID)
	assert.False(t, ok)

	// A later match request from someone else must not see ghosts.
	other := addConn(s)
	send(s, other, map[string]interface{}{"type": "findMatch", "timeControl": "5+0"})
	assert.Equal(t, "searching", recv(t, other)["type"])
}
