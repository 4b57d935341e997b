package ws

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
)

const writeTimeout = 10 * time.Second

// Handler upgrades /ws/telemetry connections and streams hub frames.
type Handler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a WebSocket handler.
func NewHandler(hub *Hub, logger *log.Logger) (*Handler, error) {
	if hub == nil {
		return nil, errors.New("telemetry ws: nil hub")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a separate origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// ServeHTTP handles GET /ws/telemetry.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("telemetry ws: upgrade error: %v", err)
		return
	}
	go h.serve(conn)
}

func (h *Handler) serve(conn *websocket.Conn) {
	metrics.AddWebsocketClient()
	defer metrics.RemoveWebsocketClient()
	defer conn.Close()

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	// Inbound frames are discarded; the read loop only detects closes.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
