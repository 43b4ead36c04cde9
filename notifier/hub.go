// Package notifier pushes order state-change events to clients currently
// viewing that order. Delivery is best-effort and at-most-once; clients
// re-fetch order state on (re)connect, the store stays authoritative.
package notifier

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// subscription is what a connected client sends to enter or leave the
// room for one order.
type subscription struct {
	Action  string `json:"action"` // "join" or "leave"
	OrderID string `json:"orderId"`
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks per-order rooms of websocket clients.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the storefront origin; auth
			// is not required to watch an order's public status events.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// ServeWS upgrades the connection and services join/leave requests until
// the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	go c.writePump()
	c.readPump()
}

// Publish sends one event to every client in the order's room. Slow
// consumers whose buffers are full are dropped rather than blocking the
// publisher.
func (h *Hub) Publish(orderID, event string, payload any) {
	msg, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("encoding event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[orderID]))
	for c := range h.rooms[orderID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow subscriber", zap.String("order_id", orderID))
			go c.close()
		}
	}
}

func (h *Hub) join(c *client, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[orderID] = room
	}
	room[c] = struct{}{}
	c.rooms[orderID] = struct{}{}
}

func (h *Hub) leave(c *client, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, orderID)
}

func (h *Hub) leaveLocked(c *client, orderID string) {
	if room, ok := h.rooms[orderID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, orderID)
		}
	}
	delete(c.rooms, orderID)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID := range c.rooms {
		h.leaveLocked(c, orderID)
	}
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	rooms map[string]struct{}

	closeOnce sync.Once
}

func (c *client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var sub subscription
		if err := json.Unmarshal(msg, &sub); err != nil || sub.OrderID == "" {
			continue
		}
		switch sub.Action {
		case "join":
			c.hub.join(c, sub.OrderID)
		case "leave":
			c.hub.leave(c, sub.OrderID)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.hub.drop(c)
		close(c.done)
		c.conn.Close()
	})
}
