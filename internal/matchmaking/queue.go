// internal/matchmaking/queue.go
package matchmaking

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chessmatch/internal/conn"
	"chessmatch/internal/room"
)

// Entry is one waiting matchmaking request.
type Entry struct {
	Conn        *conn.Conn
	TimeControl string
	IgnoreTime  bool
}

// Queue holds waiting players in enqueue order and pairs them first-fit.
// Entries wait indefinitely; only an explicit cancel or a disconnect removes
// one without a match.
type Queue struct {
	mu       sync.Mutex
	entries  []*Entry
	rooms    *room.Store
	registry *conn.Registry
	log      *logrus.Logger
}

func NewQueue(rooms *room.Store, registry *conn.Registry, logger *logrus.Logger) *Queue {
	return &Queue{
		rooms:    rooms,
		registry: registry,
		log:      logger,
	}
}

// compatible reports whether two requests can share a game: identical time
// controls always pair, and either side may opt out of caring.
func compatible(a, b *Entry) bool {
	return a.TimeControl == b.TimeControl || a.IgnoreTime || b.IgnoreTime
}

// resolveTimeControl picks the clock for a matched pair. The non-ignoring
// party's preference wins; if both ignored and the values differ, the
// longer-waiting entry's value is the tiebreak.
func resolveTimeControl(waiting, requester *Entry) string {
	switch {
	case waiting.TimeControl == requester.TimeControl:
		return waiting.TimeControl
	case !waiting.IgnoreTime && requester.IgnoreTime:
		return waiting.TimeControl
	case waiting.IgnoreTime && !requester.IgnoreTime:
		return requester.TimeControl
	default:
		return waiting.TimeControl
	}
}

// Enqueue scans the queue front to back and takes the FIRST compatible entry.
// This is deliberately first-fit, not best-fit: an early ignore-flagged entry
// wins over a later exact match. On a hit the pair gets a matched room, the
// waiting side seated as white; on a miss the requester joins the back of
// the queue.
func (q *Queue) Enqueue(c *conn.Conn, timeControl string, ignoreTime bool) {
	req := &Entry{Conn: c, TimeControl: timeControl, IgnoreTime: ignoreTime}

	q.mu.Lock()
	defer q.mu.Unlock()

	// At most one live entry per connection. A repeat request changes
	// nothing; just remind the client it is still searching.
	for _, e := range q.entries {
		if e.Conn.ID == c.ID {
			c.Write(map[string]interface{}{"type": "searching"})
			return
		}
	}

	for i, waiting := range q.entries {
		if !compatible(waiting, req) {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		q.registry.SetQueued(waiting.Conn.ID, false)
		q.match(waiting, req)
		return
	}

	q.entries = append(q.entries, req)
	q.registry.SetQueued(c.ID, true)
	c.Write(map[string]interface{}{"type": "searching"})
	q.log.Infof("matchmaking: %s queued (tc=%s, ignore=%v), %d waiting", c.ID, timeControl, ignoreTime, len(q.entries))
}

// match creates the room and tells both sides. Called with the queue lock
// held; the room store has its own lock and never calls back into the queue.
func (q *Queue) match(waiting, requester *Entry) {
	timeControl := resolveTimeControl(waiting, requester)

	var code string
	for {
		code = q.rooms.UniqueCode()
		if err := q.rooms.CreateMatched(code, waiting.Conn, requester.Conn, timeControl); err == nil {
			break
		}
		// Lost a race for the code to a concurrent create; roll again.
	}

	waiting.Conn.Write(map[string]interface{}{
		"type":        "matchFound",
		"roomId":      code,
		"color":       "white",
		"timeControl": timeControl,
	})
	requester.Conn.Write(map[string]interface{}{
		"type":        "matchFound",
		"roomId":      code,
		"color":       "black",
		"timeControl": timeControl,
	})
	q.log.Infof("matchmaking: %s vs %s in room %s (tc=%s)", waiting.Conn.ID, requester.Conn.ID, code, timeControl)
}

// Cancel removes id's entry if it has one. Absent entries are fine; cancel
// races with disconnect cleanup all the time.
func (q *Queue) Cancel(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Conn.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.registry.SetQueued(id, false)
			q.log.Infof("matchmaking: %s cancelled, %d waiting", id, len(q.entries))
			return
		}
	}
}

// Waiting reports the current queue depth.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
