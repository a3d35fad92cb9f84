// Package dashboard exposes the running cache state over a read-only
// WebSocket feed, for local observability — not part of the core stream
// client, and never on the critical path of applying a delta.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betfair-go/stream/internal/stream"
)

// Hub manages WebSocket clients and broadcasts events to them. Unlike a
// generic pub/sub fanout, it remembers the most recent Snapshot so a
// client that connects between two broadcastLoop ticks still sees
// current market/order state immediately, instead of staring at an
// empty dashboard for up to a second.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	mu         sync.RWMutex
	logger     *slog.Logger

	snapMu   sync.RWMutex
	lastSnap *Snapshot
}

// Client is one connected WebSocket observer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		logger:     logger.With("component", "dashboard-hub"),
	}
}

// Run starts the hub's main loop; call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "count", len(h.clients))

			if snap := h.currentSnapshot(); snap != nil {
				select {
				case client.send <- Event{Type: "snapshot", Timestamp: snap.Timestamp, Data: *snap}:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "count", len(h.clients))

		case evt := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- evt:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) currentSnapshot() *Snapshot {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.lastSnap
}

// BroadcastEvent sends evt to all connected clients. Marshaling is
// deferred to each client's writePump, so a slow JSON encode for one
// slow client can't stall delivery to the rest.
func (h *Hub) BroadcastEvent(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "type", evt.Type)
	}
}

// BroadcastSnapshot records snapshot as the hub's current state and
// broadcasts it as an Event. Recording it is what lets a freshly
// registered client catch up immediately instead of waiting for the
// next periodic tick.
func (h *Hub) BroadcastSnapshot(snapshot Snapshot) {
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now()
	}
	h.snapMu.Lock()
	h.lastSnap = &snapshot
	h.snapMu.Unlock()

	h.BroadcastEvent(Event{Type: "snapshot", Timestamp: snapshot.Timestamp, Data: snapshot})
}

// BroadcastMetadata reports a stream lifecycle transition (connect,
// authenticate, disconnect) to dashboard clients, so an observer can
// tell "no updates" apart from "not connected".
func (h *Hub) BroadcastMetadata(update stream.MetadataUpdate) {
	h.BroadcastEvent(Event{Type: "metadata", Timestamp: time.Now(), Data: metadataLabel(update)})
}

func metadataLabel(update stream.MetadataUpdate) string {
	switch update {
	case stream.TCPConnected:
		return "tcp_connected"
	case stream.Authenticated:
		return "authenticated"
	case stream.FailedToConnect:
		return "failed_to_connect"
	case stream.FailedToAuthenticate:
		return "failed_to_authenticate"
	default:
		return "disconnected"
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				c.hub.logger.Error("failed to marshal event", "error", err, "type", evt.Type)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			break
		}
		// Dashboard is read-only; client messages are ignored.
	}
}

// NewClient registers conn with hub and starts its pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{hub: hub, conn: conn, send: make(chan Event, 256)}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
	return client
}
