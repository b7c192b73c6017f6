// internal/room/store.go
package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chessmatch/internal/conn"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
)

// Store owns every live room. A single coarse mutex serializes all mutations;
// every connection goroutine goes through it, which is plenty at two players
// per room.
type Store struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	registry *conn.Registry
	log      *logrus.Logger
}

func NewStore(registry *conn.Registry, logger *logrus.Logger) *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		registry: registry,
		log:      logger,
	}
}

// Create opens a room with the creator seated as white and no clock set.
func (s *Store) Create(code string, creator *conn.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[code]; exists {
		return ErrRoomExists
	}
	s.rooms[code] = &Room{
		Code:        code,
		White:       creator,
		TimeControl: NoClock,
	}
	s.registry.SetRoom(creator.ID, code)
	s.log.Infof("room %s created by %s", code, creator.ID)
	return nil
}

// Join seats the joiner in the vacant seat. If a time control was set while
// the room was waiting, it is synced to the joiner only; the waiting occupant
// already knows it and is told their opponent has arrived instead.
func (s *Store) Join(code string, joiner *conn.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[code]
	if !exists {
		return ErrRoomNotFound
	}
	if r.OccupantCount() >= 2 {
		return ErrRoomFull
	}
	if (r.White != nil && r.White.ID == joiner.ID) || (r.Black != nil && r.Black.ID == joiner.ID) {
		return nil // already seated; a repeat join changes nothing
	}

	// The vacant seat is normally black, but when white left and the room
	// survived with a lone black occupant, a new arrival takes the white
	// seat. The existing occupant keeps theirs either way.
	var other *conn.Conn
	seat := "black"
	if r.White == nil {
		r.White = joiner
		other = r.Black
		seat = "white"
	} else {
		r.Black = joiner
		other = r.White
	}
	s.registry.SetRoom(joiner.ID, code)

	if r.TimeControl != NoClock {
		joiner.Write(map[string]interface{}{
			"type":        "timeControlSync",
			"timeControl": r.TimeControl,
		})
	}
	if other != nil {
		other.Write(map[string]interface{}{
			"type": "opponentJoined",
		})
	}
	s.log.Infof("room %s: %s joined as %s", code, joiner.ID, seat)
	return nil
}

// CreateMatched atomically opens a room with both seats filled and the
// resolved time control already stored. Only the matchmaking queue calls
// this; it retries with a fresh code on the (unlikely) collision.
func (s *Store) CreateMatched(code string, white, black *conn.Conn, timeControl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[code]; exists {
		return ErrRoomExists
	}
	s.rooms[code] = &Room{
		Code:        code,
		White:       white,
		Black:       black,
		TimeControl: timeControl,
	}
	s.registry.SetRoom(white.ID, code)
	s.registry.SetRoom(black.ID, code)
	s.log.Infof("room %s created by matchmaking (%s vs %s, tc=%s)", code, white.ID, black.ID, timeControl)
	return nil
}

// UniqueCode returns a code no live room is using right now.
func (s *Store) UniqueCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code := NewCode()
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

// SetTimeControl stores the value on an existing room. Best effort: an
// absent room is not an error.
func (s *Store) SetTimeControl(code, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, exists := s.rooms[code]; exists {
		r.TimeControl = value
	}
}

// Leave vacates id's seat. The last occupant out destroys the room; a lone
// remaining occupant is notified and keeps the room, so they can wait for a
// rematch or leave on their own. Duplicate leaves are no-ops.
func (s *Store) Leave(code string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[code]
	if !exists {
		return
	}

	switch {
	case r.White != nil && r.White.ID == id:
		r.White = nil
	case r.Black != nil && r.Black.ID == id:
		r.Black = nil
	default:
		return // not an occupant; nothing to do
	}
	s.registry.ClearRoom(id, code)

	remaining := r.Occupants()
	if len(remaining) == 0 {
		delete(s.rooms, code)
		s.log.Infof("room %s destroyed", code)
		return
	}
	for _, other := range remaining {
		other.Write(map[string]interface{}{
			"type": "opponentDisconnected",
		})
	}
	s.log.Infof("room %s: %s left, %d occupant(s) remain", code, id, len(remaining))
}

// RelayScoped delivers payload to every occupant of code except the sender.
// Relay is best-effort routing: an unknown room or a sender who is not an
// occupant drops the payload silently.
func (s *Store) RelayScoped(code string, senderID uuid.UUID, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[code]
	if !exists {
		s.log.Debugf("relay to unknown room %s dropped", code)
		return
	}

	senderPresent := false
	for _, occ := range r.Occupants() {
		if occ.ID == senderID {
			senderPresent = true
			break
		}
	}
	if !senderPresent {
		s.log.Debugf("relay in room %s dropped: %s is not an occupant", code, senderID)
		return
	}

	for _, occ := range r.Occupants() {
		if occ.ID != senderID {
			occ.Write(payload)
		}
	}
}

// Get returns the live room for code, if any.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	return r, ok
}

// Count reports the number of live rooms.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
