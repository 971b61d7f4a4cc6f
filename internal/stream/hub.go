// Package stream pushes derived views to browser dashboards over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"nivel_exporter/internal/types"
)

const sendBufferSize = 16

var errHubClosed = errors.New("hub closed")

// envelope is the frame format sent to clients.
type envelope struct {
	Type    string            `json:"type"`
	Payload types.DerivedView `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts views to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
	latest     []byte
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a hub. checkOrigin may be nil to accept same-origin requests only.
func NewHub(logger *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
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
			h.logger.Debug("WebSocket client registered", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))
			if h.latest != nil {
				c.send <- h.latest
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("WebSocket client unregistered", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			h.latest = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("WebSocket client too slow, removing", "remote", c.conn.RemoteAddr().String())
					h.drop(c)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish implements poller.Sink by broadcasting view to every connected client.
func (h *Hub) Publish(ctx context.Context, view types.DerivedView) error {
	msg, err := json.Marshal(envelope{Type: "view", Payload: view})
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return errHubClosed
	case <-ctx.Done():
		return fmt.Errorf("broadcast view: %w", ctx.Err())
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply, nil
	case <-h.done:
		return 0, errHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
}
