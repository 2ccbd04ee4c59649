package handlers

import (
	"net/http"
	"time"
)

// HandleHealth reports liveness plus a few in-process counters.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeFreets, err := s.Engine.ActiveFreets(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":            "healthy",
			"active_freets":     activeFreets,
			"websocket_clients": s.Hub.ClientCount(),
			"metrics":           s.Metrics.Snapshot(),
			"server_time":       time.Now(),
		})
	}
}
