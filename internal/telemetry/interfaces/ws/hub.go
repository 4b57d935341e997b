package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/eventing"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application/events"
)

// Hub fans out telemetry frames to connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	logger  *log.Logger
}

// NewHub constructs a hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{clients: make(map[chan []byte]struct{}), logger: logger}
}

// HandleReadingRecorded converts reading events into telemetry frames.
// Wired as a bus subscriber for events.ReadingRecorded.
func (h *Hub) HandleReadingRecorded(_ context.Context, event any) error {
	if h == nil {
		return nil
	}
	recorded, ok := event.(events.ReadingRecorded)
	if !ok {
		return eventing.ErrInvalidEventType
	}

	payload, err := json.Marshal(frame{
		Type: "telemetry",
		Data: frameData{
			ID:          recorded.ID,
			Timestamp:   recorded.Timestamp,
			PowerLoadKW: recorded.PowerLoadKW,
			FuelRateLPH: recorded.FuelRateLPH,
			Status:      recorded.Status,
		},
	})
	if err != nil {
		return err
	}
	h.broadcast(payload)
	return nil
}

// Subscribe registers a new client channel.
func (h *Hub) Subscribe() chan []byte {
	if h == nil {
		return nil
	}
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	if h == nil || ch == nil {
		return
	}
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast delivers the payload to every client. A client with a full
// send buffer misses the frame instead of blocking the bus.
func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	clients := make([]chan []byte, 0, len(h.clients))
	for ch := range h.clients {
		clients = append(clients, ch)
	}
	h.mu.Unlock()
	for _, ch := range clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

type frame struct {
	Type string    `json:"type"`
	Data frameData `json:"data"`
}

type frameData struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	PowerLoadKW float64   `json:"power_load_kw"`
	FuelRateLPH float64   `json:"fuel_consumption_lph"`
	Status      string    `json:"status"`
}
