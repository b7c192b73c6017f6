// internal/handlers/stats.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// StatsHandler serves the aggregate presence counters plus a snapshot of
// live coordination state.
func StatsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats, err := s.Presence.Stats(ctx)
		if err != nil {
			s.Logger.Warnf("stats lookup failed: %v", err)
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"online":         stats.Online,
			"totalVisits":    stats.TotalVisits,
			"uniqueVisitors": stats.UniqueVisitors,
			"rooms":          s.Rooms.Count(),
			"searching":      s.Queue.Waiting(),
		})
	}
}

// HealthHandler is a bare liveness probe.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
