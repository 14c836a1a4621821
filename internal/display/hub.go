// Package display pushes boards, table statuses and ready notifications to
// the kitchen screens over websockets.
package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MessageBoard      = "board"
	MessageTables     = "tables"
	MessageTableReady = "table_ready"
)

const (
	defaultBufferSize = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 512
)

// Message is the envelope of everything written to a screen.
type Message struct {
	Type      string      `json:"type"`
	MonitorID string      `json:"monitor_id,omitempty"`
	SentAt    time.Time   `json:"sent_at"`
	Data      interface{} `json:"data"`
}

// BoardSource provides the state a screen receives when it connects.
type BoardSource interface {
	Board(monitorID string, kind kds.BoardKind) (kds.Board, error)
	Tables() []kds.TableStatus
}

type client struct {
	id        string
	monitorID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub fans projector output out to connected screens. A screen that cannot
// keep up loses messages instead of slowing the others down; the next board
// it receives is complete anyway.
type Hub struct {
	source     BoardSource
	logger     apt.Logger
	upgrader   websocket.Upgrader
	bufferSize int
	now        func() time.Time

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool

	dropped atomic.Uint64
}

func NewHub(source BoardSource, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Hub{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			// Screens live on the restaurant network; the router only accepts internal traffic.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		bufferSize: defaultBufferSize,
		now:        time.Now,
		clients:    make(map[string]*client),
	}
}

// ServeMonitor upgrades the request and streams monitorID's board until the
// screen disconnects.
func (h *Hub) ServeMonitor(w http.ResponseWriter, r *http.Request, monitorID string) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		apt.RespondError(w, http.StatusServiceUnavailable, "Display hub is shutting down")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("cannot upgrade display connection", "monitor_id", monitorID, "error", err)
		return
	}

	c := &client{
		id:        uuid.NewString(),
		monitorID: monitorID,
		conn:      conn,
		send:      make(chan []byte, h.bufferSize),
	}
	h.initialState(c)
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("display connected", "client_id", c.id, "monitor_id", monitorID, "clients", h.ClientCount())

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	h.logger.Info("display disconnected", "client_id", c.id, "monitor_id", monitorID, "clients", h.ClientCount())
}

// BroadcastBoard sends board to the screens of its monitor.
func (h *Hub) BroadcastBoard(board kds.Board) {
	msg, err := h.encode(MessageBoard, board.MonitorID, board)
	if err != nil {
		return
	}
	h.deliver(msg, func(c *client) bool { return c.monitorID == board.MonitorID })
}

// BroadcastTables sends table statuses to every screen.
func (h *Hub) BroadcastTables(tables []kds.TableStatus) {
	msg, err := h.encode(MessageTables, "", tables)
	if err != nil {
		return
	}
	h.deliver(msg, nil)
}

// NotifyTableReady sends the ready signal to every screen.
func (h *Hub) NotifyTableReady(ctx context.Context, ready kds.TableReady) error {
	msg, err := h.encode(MessageTableReady, "", ready)
	if err != nil {
		return err
	}
	h.deliver(msg, nil)
	return nil
}

// ClientCount returns the number of connected screens.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded for slow screens.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) Start(ctx context.Context) error {
	return nil
}

// Stop disconnects every screen and refuses new ones.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	return nil
}

func (h *Hub) initialState(c *client) {
	if h.source == nil {
		return
	}
	if board, err := h.source.Board(c.monitorID, kds.BoardActive); err == nil {
		if msg, err := h.encode(MessageBoard, c.monitorID, board); err == nil {
			c.send <- msg
		}
	}
	if msg, err := h.encode(MessageTables, "", h.source.Tables()); err == nil {
		c.send <- msg
	}
}

func (h *Hub) encode(kind, monitorID string, data interface{}) ([]byte, error) {
	msg, err := json.Marshal(Message{Type: kind, MonitorID: monitorID, SentAt: h.now(), Data: data})
	if err != nil {
		h.logger.Error("cannot encode display message", "type", kind, "error", err)
		return nil, err
	}
	return msg, nil
}

func (h *Hub) deliver(msg []byte, match func(*client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if match != nil && !match(c) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
			h.logger.Debug("display buffer full, dropping message", "client_id", c.id, "monitor_id", c.monitorID)
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the screen going away; screens act through the HTTP API.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Info("display connection error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}
