package websocket

import (
	"context"
	"encoding/json"
	"fritter/internal/models"
	"log"
	"sync"

	"github.com/google/uuid"
)

const eventBuffer = 256

// Hub fans reputation events out to connected clients.
type Hub struct {
	// Registered clients. A client with a nil FreetID receives every event.
	clients map[*Client]bool

	events     chan *models.ReputationEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		events:     make(chan *models.ReputationEvent, eventBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's processing loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	log.Println("WebSocket Hub started.")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Println("WebSocket Hub stopped.")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			log.Printf("WebSocket Client registered for User %s (freet filter %s). Total connections: %d",
				client.UserID, client.FreetID, len(h.clients))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WebSocket Client unregistered for User %s. Remaining connections: %d", client.UserID, len(h.clients))
			}
			h.mu.Unlock()

		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("WebSocket Hub: failed to encode %s event: %v", event.Type, err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(event.FreetID) {
					continue
				}
				select {
				case client.Send <- payload:
				default:
					log.Printf("Send buffer full for client of User %s. Event dropped for this client.", client.UserID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues an event for delivery. It never blocks the caller; when
// the queue is full the event is dropped.
func (h *Hub) Publish(event *models.ReputationEvent) {
	select {
	case h.events <- event:
	default:
		log.Printf("WebSocket Hub: event queue full, dropping %s event for freet %s", event.Type, event.FreetID)
	}
}

// Attach registers a client with the hub. Once the hub has stopped the
// client's Send channel is closed instead, which ends its WritePump.
func (h *Hub) Attach(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) wants(freetID uuid.UUID) bool {
	return c.FreetID == uuid.Nil || c.FreetID == freetID
}
