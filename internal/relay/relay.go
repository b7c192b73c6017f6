// internal/relay/relay.go
package relay

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chessmatch/internal/room"
)

// Relay routes in-game signals from one occupant to the other. It never
// looks inside a payload: move legality, game outcomes and the rest of the
// chess semantics are the clients' business. Membership is checked by the
// room store; anything that fails the check is dropped, never errored back.
type Relay struct {
	rooms *room.Store
	log   *logrus.Logger
}

func New(rooms *room.Store, logger *logrus.Logger) *Relay {
	return &Relay{rooms: rooms, log: logger}
}

// Move forwards a move event verbatim to the opponent. The fields map is
// whatever the sender supplied (from, to, moveType, clock values, timestamp).
func (r *Relay) Move(code string, senderID uuid.UUID, fields map[string]interface{}) {
	payload := map[string]interface{}{"type": "opponentMove"}
	for k, v := range fields {
		if k == "type" || k == "roomId" {
			continue
		}
		payload[k] = v
	}
	r.rooms.RelayScoped(code, senderID, payload)
}

// GameOver forwards a game-over notice. The reason string is opaque.
func (r *Relay) GameOver(code string, senderID uuid.UUID, reason string) {
	r.rooms.RelayScoped(code, senderID, map[string]interface{}{
		"type":   "gameOver",
		"reason": reason,
	})
}

// Rematch forwards one of the rematch signals. signal must already be the
// outbound type (rematchRequest, rematchAccepted, rematchDeclined).
func (r *Relay) Rematch(code string, senderID uuid.UUID, signal string) {
	r.rooms.RelayScoped(code, senderID, map[string]interface{}{
		"type": signal,
	})
}

// TimeControl announces a time-control change to the opponent. Storage on
// the room happened before this; the announcement is best-effort like every
// other relay.
func (r *Relay) TimeControl(code string, senderID uuid.UUID, timeControl string) {
	r.rooms.RelayScoped(code, senderID, map[string]interface{}{
		"type":        "timeControlSync",
		"timeControl": timeControl,
	})
}
