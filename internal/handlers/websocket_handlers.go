package handlers

import (
	"fritter/internal/websocket"
	"log"
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

func (s *Server) upgrader() ws.Upgrader {
	return ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.CORS.OriginAllowed(origin)
		},
	}
}

// HandleWebSocket streams reputation events. The JWT comes from ?token=
// because browsers cannot set headers on the upgrade request; ?freet=
// narrows the stream to a single freet.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			log.Println("WebSocket connection failed: Missing token")
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		claims, err := s.Auth.ValidateToken(tokenString)
		if err != nil {
			log.Printf("WebSocket connection failed: Invalid token: %v", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		freetID := uuid.Nil
		if raw := r.URL.Query().Get("freet"); raw != "" {
			freetID, err = uuid.Parse(raw)
			if err != nil {
				http.Error(w, "Invalid freet ID format", http.StatusBadRequest)
				return
			}
		}

		upgrader := s.upgrader()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for User %s: %v", claims.UserID, err)
			return
		}

		client := websocket.NewClient(s.Hub, conn, claims.UserID, freetID)
		s.Hub.Attach(client)
		log.Printf("WebSocket client registered for User %s", claims.UserID)

		go client.WritePump()
		go client.ReadPump()
	}
}
