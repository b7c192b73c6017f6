// internal/presence/presence.go
package presence

import "context"

// Stats is the aggregate view the /stats endpoint serves.
type Stats struct {
	Online         int64 `json:"online"`
	TotalVisits    int64 `json:"totalVisits"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
}

// Sink receives connection lifecycle events for visitor/online accounting.
// It is a collaborator, not part of the coordination core: implementations
// must never let a recording failure reach gameplay, and callers treat every
// Record* call as fire-and-forget.
type Sink interface {
	RecordConnect(ctx context.Context, fingerprint string)
	RecordDisconnect(ctx context.Context)
	Stats(ctx context.Context) (Stats, error)
}

// Noop is the sink used in tests and when Postgres or Redis are unreachable
// at boot. The coordinator runs fine without analytics.
type Noop struct{}

func (Noop) RecordConnect(context.Context, string) {}
func (Noop) RecordDisconnect(context.Context)      {}
func (Noop) Stats(context.Context) (Stats, error)  { return Stats{}, nil }
