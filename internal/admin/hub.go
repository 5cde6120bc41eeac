package admin

import (
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"fuelsensor-sim/internal/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope wraps every message pushed to websocket clients.
type Envelope struct {
	Type string `json:"type"` // record, event or state
	Data any    `json:"data"`
}

// Hub fans accepted records, fuel events and loop transitions out to
// websocket clients. It implements sim.TelemetryWriter, sim.EventWriter and
// sim.StateWriter so it can be mounted as a mirror.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[*Client]bool), logger: logger}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast delivers msg to every client interested in sensorID. An empty
// sensorID reaches all clients.
func (h *Hub) broadcast(sensorID string, env Envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if sensorID != "" && !c.wants(sensorID) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping message", "remote", c.remote)
		}
	}
	return nil
}

// Write implements sim.TelemetryWriter.
func (h *Hub) Write(rec telemetry.Record) error {
	return h.broadcast(rec.SensorID, Envelope{Type: "record", Data: rec})
}

// WriteEvent implements sim.EventWriter.
func (h *Hub) WriteEvent(e telemetry.EventRow) error {
	return h.broadcast(e.SensorID, Envelope{Type: "event", Data: e})
}

// WriteState implements sim.StateWriter.
func (h *Hub) WriteState(row telemetry.StateRow) error {
	return h.broadcast("", Envelope{Type: "state", Data: row})
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
