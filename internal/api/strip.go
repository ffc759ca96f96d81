package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"beacon/internal/peripheral"
)

const (
	clientBuffer = 16
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// StripHub fans strip frames out to websocket viewers. It is the FrameSink
// of the virtual strip, so PushFrame never blocks the animation: a viewer
// whose buffer is full misses frames.
type StripHub struct {
	mu       sync.Mutex
	clients  map[*hubClient]struct{}
	last     *peripheral.Frame
	upgrader websocket.Upgrader
	logger   *log.Logger
}

type hubClient struct {
	frames chan peripheral.Frame
}

// NewStripHub creates an empty hub
func NewStripHub(logger *log.Logger) *StripHub {
	return &StripHub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Access is checked by the one-time token middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// PushFrame implements peripheral.FrameSink
func (h *StripHub) PushFrame(f peripheral.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &f
	for c := range h.clients {
		select {
		case c.frames <- f:
		default:
		}
	}
}

// Clients returns the number of connected viewers
func (h *StripHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StripHub) register() *hubClient {
	c := &hubClient{frames: make(chan peripheral.Frame, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.frames <- *h.last
	}
	h.mu.Unlock()

	return c
}

func (h *StripHub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS handles GET /api/strip/ws. Each message is a JSON frame.
func (h *StripHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("WebSocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	c := h.register()
	defer h.unregister(c)
	h.logf("Strip viewer connected from %s", getClientIP(r))

	// Reader detects the close; viewers send nothing else
	closed := make(chan struct{})
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case f := <-c.frames:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StripHub) logf(format string, v ...interface{}) {
	if h.logger != nil {
		h.logger.Printf("[API] "+format, v...)
	}
}
