// internal/conn/conn.go
package conn

import (
	"log"

	"github.com/google/uuid"
)

// Conn is a single live client connection. The ID is opaque and
// server-assigned; it lives exactly as long as the transport session.
// VisitorID is the anonymous visitor identity carried by the session
// token, used only for presence counting.
type Conn struct {
	ID        uuid.UUID
	VisitorID string

	// Cancel stops the goroutines associated with this connection.
	Cancel func()

	// Out is drained by the connection's write pump. Everything the server
	// sends to this client goes through here, so per-connection ordering is
	// whatever order messages were enqueued in.
	Out chan map[string]interface{}
}

// New allocates a connection with a fresh id and a buffered out channel.
func New(visitorID string, cancel func()) *Conn {
	return &Conn{
		ID:        uuid.New(),
		VisitorID: visitorID,
		Cancel:    cancel,
		Out:       make(chan map[string]interface{}, 16),
	}
}

// Write enqueues msg without blocking. If the out channel is full or closed
// the message is dropped; a slow or dead client must never stall a room.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.Out <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("conn %s: out channel full or closed, dropped %q", c.ID, msgType)
	}
}

// WriteError sends a structured error signal to this connection only.
func (c *Conn) WriteError(kind, message string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"kind":    kind,
		"message": message,
	})
}
