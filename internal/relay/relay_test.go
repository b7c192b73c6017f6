// internal/relay/relay_test.go
package relay

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessmatch/internal/conn"
	"chessmatch/internal/room"
)

func newTestRelay(t *testing.T) (*Relay, *conn.Conn, *conn.Conn) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry := conn.NewRegistry()
	rooms := room.NewStore(registry, logger)

	white := conn.New("v1", func() {})
	black := conn.New("v2", func() {})
	require.NoError(t, rooms.Create("ABC123", white))
	require.NoError(t, rooms.Join("ABC123", black))
	drainAll(white, black)

	return New(rooms, logger), white, black
}

func drainAll(conns ...*conn.Conn) {
	for _, c := range conns {
		for len(c.Out) > 0 {
			<-c.Out
		}
	}
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

func TestMoveForwardedVerbatim(t *testing.T) {
	r, white, black := newTestRelay(t)

	r.Move("ABC123", white.ID, map[string]interface{}{
		"type":      "move",
		"roomId":    "ABC123",
		"from":      "e2",
		"to":        "e4",
		"moveType":  "normal",
		"whiteTime": 297.5,
		"blackTime": 300.0,
		"timestamp": float64(1700000000),
	})

	m := recv(t, black)
	assert.Equal(t, "opponentMove", m["type"])
	assert.Equal(t, "e2", m["from"])
	assert.Equal(t, "e4", m["to"])
	assert.Equal(t, "normal", m["moveType"])
	assert.Equal(t, 297.5, m["whiteTime"])
	assert.NotContains(t, m, "roomId", "routing fields are stripped, payload is otherwise untouched")
	assert.Empty(t, white.Out, "sender never echoes")
}

func TestGameOverAndRematchSignals(t *testing.T) {
	r, white, black := newTestRelay(t)

	r.GameOver("ABC123", black.ID, "checkmate")
	m := recv(t, white)
	assert.Equal(t, "gameOver", m["type"])
	assert.Equal(t, "checkmate", m["reason"])

	r.Rematch("ABC123", white.ID, "rematchRequest")
	assert.Equal(t, "rematchRequest", recv(t, black)["type"])
	r.Rematch("ABC123", black.ID, "rematchAccepted")
	assert.Equal(t, "rematchAccepted", recv(t, white)["type"])
}

func TestTimeControlAnnouncement(t *testing.T) {
	r, white, black := newTestRelay(t)

	r.TimeControl("ABC123", white.ID, "10+5")
	m := recv(t, black)
	assert.Equal(t, "timeControlSync", m["type"])
	assert.Equal(t, "10+5", m["timeControl"])
}

func TestRelayDropsSilently(t *testing.T) {
	r, white, black := newTestRelay(t)
	outsider := conn.New("v3", func() {})

	// Nonexistent room, then a sender who is not an occupant. Both vanish
	// without an error signal to anyone.
	r.Move("NOPE99", white.ID, map[string]interface{}{"type": "move"})
	r.Move("ABC123", outsider.ID, map[string]interface{}{"type": "move"})

	assert.Empty(t, white.Out)
	assert.Empty(t, black.Out)
	assert.Empty(t, outsider.Out)
}
