package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
)

// Hub fans events out to every connection attached to a room
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	logger zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger,
	}
}

func (h *Hub) register(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[code] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, code)
	}
}

// Publish pushes an event to every connection attached to the event's room.
// Wire this as the room service's Events callback.
func (h *Hub) Publish(event models.Event) {
	payload, err := json.Marshal(&Envelope{Type: envelopeEvent, Event: &event})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[event.Code] {
		c.trySend(payload)
	}
}
