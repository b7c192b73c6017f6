// internal/handlers/dispatch.go
package handlers

import (
	"errors"

	"chessmatch/internal/conn"
	"chessmatch/internal/room"
)

// handleClientMessage routes one inbound packet by its "type" field.
// Room-level errors go back to the sender only; relay-level failures are
// dropped inside the relay; anything unrecognized is logged and ignored.
func handleClientMessage(s *Server, c *conn.Conn, packet map[string]interface{}) {
	action, _ := packet["type"].(string)

	switch action {
	case "createRoom":
		code := stringField(packet, "roomId")
		if !validRoomCode(code) {
			s.Logger.Warnf("connection %s: createRoom with bad room id %q", c.ID, code)
			return
		}
		prev := currentRoom(s, c)
		if err := s.Rooms.Create(code, c); err != nil {
			c.WriteError(errorKind(err), err.Error())
			return
		}
		if prev != "" {
			s.Rooms.Leave(prev, c.ID)
		}
		c.Write(map[string]interface{}{"type": "roomCreated", "roomId": code})

	case "joinRoom":
		code := stringField(packet, "roomId")
		if !validRoomCode(code) {
			s.Logger.Warnf("connection %s: joinRoom with bad room id %q", c.ID, code)
			return
		}
		prev := currentRoom(s, c)
		if err := s.Rooms.Join(code, c); err != nil {
			c.WriteError(errorKind(err), err.Error())
			return
		}
		if prev != "" && prev != code {
			s.Rooms.Leave(prev, c.ID)
		}
		c.Write(map[string]interface{}{"type": "roomJoined", "roomId": code})

	case "move":
		s.Relay.Move(stringField(packet, "roomId"), c.ID, packet)

	case "gameOver":
		s.Relay.GameOver(stringField(packet, "roomId"), c.ID, stringField(packet, "reason"))

	case "timeControlSet":
		code := stringField(packet, "roomId")
		timeControl := stringField(packet, "timeControl")
		if timeControl == "" {
			return
		}
		s.Rooms.SetTimeControl(code, timeControl)
		s.Relay.TimeControl(code, c.ID, timeControl)

	case "rematchRequest":
		s.Relay.Rematch(stringField(packet, "roomId"), c.ID, "rematchRequest")

	case "rematchAccept":
		s.Relay.Rematch(stringField(packet, "roomId"), c.ID, "rematchAccepted")

	case "rematchDecline":
		s.Relay.Rematch(stringField(packet, "roomId"), c.ID, "rematchDeclined")

	case "findMatch":
		if prev := currentRoom(s, c); prev != "" {
			s.Rooms.Leave(prev, c.ID)
		}
		timeControl := stringField(packet, "timeControl")
		if timeControl == "" {
			timeControl = room.NoClock
		}
		ignoreTime, _ := packet["ignoreTime"].(bool)
		s.Queue.Enqueue(c, timeControl, ignoreTime)

	case "cancelMatchmaking":
		s.Queue.Cancel(c.ID)

	case "leaveRoom":
		s.Rooms.Leave(stringField(packet, "roomId"), c.ID)

	case "ping":
		c.Write(map[string]interface{}{"type": "pong"})

	default:
		s.Logger.Warnf("connection %s: unknown action %q", c.ID, action)
	}
}

// currentRoom reports the room the connection is seated in, empty if none.
// A connection holds at most one seat; taking a new one vacates the old.
func currentRoom(s *Server, c *conn.Conn) string {
	roomID, _, _ := s.Registry.Lookup(c.ID)
	return roomID
}

// stringField pulls a string out of a decoded JSON packet, empty if absent
// or the wrong type.
func stringField(packet map[string]interface{}, key string) string {
	v, _ := packet[key].(string)
	return v
}

// validRoomCode keeps client-supplied codes within reason. Collisions are
// handled by the store, not here.
func validRoomCode(code string) bool {
	return code != "" && len(code) <= 16
}

// errorKind maps store errors to the error-signal kind the client switches on.
func errorKind(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomExists):
		return "roomExists"
	case errors.Is(err, room.ErrRoomNotFound):
		return "roomNotFound"
	case errors.Is(err, room.ErrRoomFull):
		return "roomFull"
	default:
		return "internal"
	}
}
