package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// ScanEvent is pushed to subscribed stations whenever a scan is classified.
type ScanEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Code      string    `json:"code"`
	Outcome   string    `json:"outcome"`
	Unsynced  int       `json:"unsynced"`
	At        time.Time `json:"at"`
}

// Hub maintains the set of active clients and fans scan events out to the
// stations watching each session.
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				close(old.send)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("📱 Station connected: %s (session %s)", client.ID, client.SessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("📴 Station disconnected: %s", client.ID)
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastScan sends a scan event to every client subscribed to the event's
// session. Clients with a full buffer are skipped rather than blocked on.
func (h *Hub) BroadcastScan(event ScanEvent) {
	event.Type = "SCAN"
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling scan event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.SessionID != "" && client.SessionID != event.SessionID {
			continue
		}
		select {
		case client.send <- msg:
		default:
		}
	}
}
