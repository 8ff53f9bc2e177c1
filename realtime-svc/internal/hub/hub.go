// Package hub fans order events out to the websocket connections of the
// users and roles they are addressed to.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"zestro/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Presence is told about every connection that comes and goes.
type Presence interface {
	Online(ctx context.Context, userID string, role domain.Role) error
	Offline(ctx context.Context, userID string, role domain.Role) error
}

type Client struct {
	UserID string
	Role   domain.Role

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	dispatch   chan domain.Event
	presence   Presence
	done       chan struct{}
	mu         sync.RWMutex
}

func New(presence Presence) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		dispatch:   make(chan domain.Event, 256),
		presence:   presence,
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			if h.presence != nil {
				if err := h.presence.Online(ctx, c.UserID, c.Role); err != nil {
					log.Printf("[realtime-svc] presence online %s: %v", c.UserID, err)
				}
			}

		case c := <-h.unregister:
			h.remove(ctx, c)

		case e := <-h.dispatch:
			h.deliver(ctx, e)
		}
	}
}

// Dispatch queues e for delivery. It blocks while the queue is full.
func (h *Hub) Dispatch(ctx context.Context, e domain.Event) error {
	select {
	case h.dispatch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return context.Canceled
	}
}

// Connections reports how many live connections userID holds.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

func addressed(e domain.Event, c *Client) bool {
	for _, id := range e.Recipients {
		if id == c.UserID {
			return true
		}
	}
	for _, role := range e.Roles {
		if role == c.Role {
			return true
		}
	}
	return false
}

func (h *Hub) deliver(ctx context.Context, e domain.Event) {
	payload, err := json.Marshal(e.Public())
	if err != nil {
		log.Printf("[realtime-svc] marshal %s event: %v", e.Type, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !addressed(e, c) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped; it refreshes when it reconnects.
	for _, c := range slow {
		log.Printf("[realtime-svc] dropping slow client %s", c.UserID)
		h.remove(ctx, c)
	}
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Offline(ctx, c.UserID, c.Role); err != nil {
			log.Printf("[realtime-svc] presence offline %s: %v", c.UserID, err)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Attach registers conn for the given user and starts its pumps. It returns
// false when the hub has stopped.
func (h *Hub) Attach(conn *websocket.Conn, userID string, role domain.Role) bool {
	c := &Client{
		UserID: userID,
		Role:   role,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return false
	}

	go c.writePump()
	go c.readPump()
	return true
}

// readPump only watches for pongs and for the peer going away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[realtime-svc] ws read %s: %v", c.UserID, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("[realtime-svc] ws write %s: %v", c.UserID, err)
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
