// Package websocket provides WebSocket connection management and message broadcasting.
package websocket

import (
	"context"
	"log"
	"sync"
)

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client access
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop and returns when ctx is done.
// This should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (total: %d)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected (total: %d)", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client send buffer full, close connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("Broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendTo queues a message for one registered client. It reports false if
// the client is gone or its buffer is full.
func (h *Hub) SendTo(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	send chan []byte
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// Send returns the send channel for the client.
func (c *Client) Send() chan []byte {
	return c.send
}
