package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	defaultSendBuf      = 32
	defaultBroadcastBuf = 128
)

// Envelope is the wire format of every /events message.
type Envelope struct {
	Type string    `json:"type"`
	Ts   time.Time `json:"ts"`
	Data any       `json:"data,omitempty"`
}

// Hub fans messages out to websocket clients. Each client has its own buffered queue and
// write pump; a client whose queue is full is disconnected instead of stalling the others.
type Hub struct {
	logger     *log.Logger
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	sendBuf    int
	done       chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// HubConfig sizes the hub queues. Zero values use defaults.
type HubConfig struct {
	SendBuf      int
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run to start it.
func NewHub(logger *log.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = defaultSendBuf
	}
	if cfg.BroadcastBuf <= 0 {
		cfg.BroadcastBuf = defaultBroadcastBuf
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, cfg.BroadcastBuf),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		sendBuf:    cfg.SendBuf,
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish encodes an envelope and queues it without blocking. Messages are dropped when
// the hub queue is full.
func (h *Hub) Publish(kind string, data any) {
	msg, err := json.Marshal(Envelope{Type: kind, Ts: time.Now().UTC(), Data: data})
	if err != nil {
		h.logger.Warn("ws message encode failed", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast queue full, dropping message", "type", kind)
	}
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Client is one websocket connection.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	closeOnce  sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, hub.sendBuf), remoteAddr: remoteAddr}
}

// close ends the write pump and the connection. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("write", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("ping", err)
				return
			}
		}
	}
}

// readPump discards client messages; it exists to process control frames and notice disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("read", err)
			return
		}
	}
}

func (c *Client) logExit(op string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.hub.logger.Debug("ws pump exiting", "op", op, "remote_addr", c.remoteAddr, "code", ce.Code)
		return
	}
	c.hub.logger.Debug("ws pump exiting", "op", op, "remote_addr", c.remoteAddr, "error", err)
}

// EventsHandler upgrades GET /events to a websocket attached to a [Hub]. When initial is
// set, its value is sent to each new client as a "status" message.
type EventsHandler struct {
	hub      *Hub
	initial  StatusFunc
	upgrader websocket.Upgrader
}

func NewEventsHandler(hub *Hub, initial StatusFunc) *EventsHandler {
	return &EventsHandler{
		hub:     hub,
		initial: initial,
		upgrader: websocket.Upgrader{
			// The feed only listens on loopback by default.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *EventsHandler) Routes() []string {
	return []string{"GET /events"}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, r.RemoteAddr)
	if h.initial != nil {
		if msg, err := json.Marshal(Envelope{Type: "status", Ts: time.Now().UTC(), Data: h.initial()}); err == nil {
			client.send <- msg
		}
	}
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	// Pumps outlive the request; the hub and connection errors end them.
	go client.writePump()
	go client.readPump()
}
