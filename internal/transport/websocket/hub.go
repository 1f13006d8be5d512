// Package websocket
package websocket

import (
	"encoding/json"

	"bandmon-server/internal/logger"
)

// Hub fans out bandwidth events to connected clients. All client map access
// happens on the Run goroutine.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan []byte

	log logger.Logger
}

type event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan []byte, 100),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("ws: client registered", "id", client.ID, "total_clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Info("ws: client unregistered", "id", client.ID, "total_clients", len(h.clients))
			}

		case message := <-h.events:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.Warn("ws: client channel full, force unregister", "id", client.ID)
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Emit broadcasts an event to every connected client. Drops the event when
// the hub's buffer is full rather than blocking the sampling loop.
func (h *Hub) Emit(name string, payload any) {
	message, err := json.Marshal(event{Event: name, Payload: payload})
	if err != nil {
		h.log.Error("ws: failed to marshal event", "event", name, "error", err)
		return
	}

	select {
	case h.events <- message:
	default:
		h.log.Warn("ws: event buffer full, event dropped", "event", name)
	}
}
