// internal/room/room.go
package room

import (
	"crypto/rand"

	"chessmatch/internal/conn"
)

// NoClock is the time-control sentinel for rooms playing without clocks.
const NoClock = "none"

// Room binds at most two connections into one game session. White is always
// the first occupant (the creator, or the longer-waiting matchmaking entry)
// and Black the second; the assignment is fixed at creation and never swaps,
// even after one side leaves.
type Room struct {
	Code        string
	White       *conn.Conn
	Black       *conn.Conn
	TimeControl string
}

// Occupants returns the present occupants in white-then-black order.
func (r *Room) Occupants() []*conn.Conn {
	occ := make([]*conn.Conn, 0, 2)
	if r.White != nil {
		occ = append(occ, r.White)
	}
	if r.Black != nil {
		occ = append(occ, r.Black)
	}
	return occ
}

// OccupantCount reports how many seats are filled (0, 1 or 2).
func (r *Room) OccupantCount() int {
	return len(r.Occupants())
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// NewCode produces a random 6-character room code. Uniqueness against live
// rooms is the store's job; see Store.UniqueCode.
func NewCode() string {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(err)
	}
	for i := range b {
		b[i] = codeCharset[int(b[i])%len(codeCharset)]
	}
	return string(b)
}
