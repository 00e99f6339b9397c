package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/ctxlog"
	"github.com/upawatch/upawatch/pkg/usecase"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Message is what browsers receive for every board change
type Message struct {
	Type string `json:"type"`
	usecase.BoardUpdate
}

// Message types
const (
	TypeUpdate  = "update"
	TypeRemoved = "removed"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans board updates out to connected browsers. Slow clients are dropped.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	clients  map[*client]struct{}
	count    atomic.Int64
	upgrader websocket.Upgrader
	initial  func() []usecase.BoardUpdate
}

// Option configures Hub
type Option func(*Hub)

// WithInitialState sends the current board to every browser on connect
func WithInitialState(fn func() []usecase.BoardUpdate) Option {
	return func(h *Hub) {
		h.initial = fn
	}
}

// WithCheckOrigin sets the origin policy of the upgrade
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves register, unregister and broadcast until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	logger := ctxlog.From(ctx)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			// Taken after registration: updates that miss the state arrive by broadcast
			h.sendInitial(c)
			logger.Debug("Browser connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				logger.Debug("Browser disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logger.Warn("Dropping slow browser", "clients", len(h.clients))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) sendInitial(c *client) {
	if h.initial == nil {
		return
	}
	for _, update := range h.initial() {
		msg, err := encode(update)
		if err != nil {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Clients returns the number of connected browsers
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Watch is a board watcher broadcasting every update
func (h *Hub) Watch(ctx context.Context, update usecase.BoardUpdate) {
	msg, err := encode(update)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to encode board update", "error", err, "facility_id", update.FacilityID)
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	case <-ctx.Done():
	}
}

func encode(update usecase.BoardUpdate) ([]byte, error) {
	t := TypeUpdate
	if update.Removed {
		t = TypeRemoved
	}
	return json.Marshal(Message{Type: t, BoardUpdate: update})
}

// ServeHTTP upgrades the request and attaches the browser to the hub
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards browser messages and detects disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
