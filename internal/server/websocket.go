package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/scheduler"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	maxMessageSize = 512
	sendBuffer     = 64
)

// Message types sent to clients.
const (
	MessageConnected = "connected"
	MessageFrame     = "frame"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope of every message sent to a client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// clientMessage is what a client may send: a keypad button press.
type clientMessage struct {
	Button *int `json:"button"`
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// Hub mirrors the display to connected WebSocket clients and accepts keypad
// presses from them. It implements display.Renderer.
type Hub struct {
	events Submitter

	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once

	mu        sync.RWMutex
	last      []byte
	lastFrame *display.Frame
}

// NewHub creates a hub. events may be nil, in which case client input is
// ignored.
func NewHub(events Submitter) *Hub {
	return &Hub{
		events:     events,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			last := h.last
			h.mu.Unlock()
			if last != nil {
				c.send <- last
			}
			logging.Debug("WebSocket client connected",
				zap.String("remote_addr", c.remoteAddr),
				zap.Int("clients", count))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client disconnected",
				zap.String("remote_addr", c.remoteAddr),
				zap.Int("clients", count))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logging.Warn("Dropping slow WebSocket client", zap.String("remote_addr", c.remoteAddr))
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
	})
}

// Render implements display.Renderer. The frame is remembered and sent to
// clients that connect later.
func (h *Hub) Render(f display.Frame) error {
	data, err := json.Marshal(Message{Type: MessageFrame, Payload: f})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.last = data
	h.lastFrame = &f
	h.mu.Unlock()

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		logging.Debug("WebSocket broadcast queue full, frame skipped")
	}
	return nil
}

// Current returns the last rendered frame, or nil before the first one.
func (h *Hub) Current() *display.Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastFrame
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		remoteAddr: r.RemoteAddr,
	}
	if data, err := json.Marshal(Message{Type: MessageConnected}); err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

func (c *client) handle(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Button == nil {
		logging.Debug("Ignoring WebSocket message", zap.String("remote_addr", c.remoteAddr))
		return
	}
	if c.hub.events == nil {
		return
	}
	e := scheduler.ButtonPress(*msg.Button)
	if !c.hub.events.Submit(e) {
		logging.Warn("Dropped WebSocket button press", zap.Stringer("event", e))
	}
}
