package realtime

import (
	"encoding/json"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/nvelasco/ClubBookBack/internal/models"
)

// ChangeEvent mirrors a row-change notification: every committed insert on
// the messages table is pushed to every connected client. Filtering by
// conversation happens client-side.
type ChangeEvent struct {
	Type   string              `json:"type"`
	Table  string              `json:"table"`
	Record *models.ChatMessage `json:"record"`
}

const (
	EventInsert   = "INSERT"
	TableMessages = "messages"
)

type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *ChangeEvent
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ChangeEvent, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast enqueues an event for delivery to every connected client.
func (h *Hub) Broadcast(event *ChangeEvent) {
	h.broadcast <- event
}

func (h *Hub) deliver(event *ChangeEvent) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime hub encode event: %v", err)
		return
	}

	for client := range h.clients {
		select {
		case client.send <- encoded:
		default:
			// Slow consumer; drop it rather than stall the feed.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ReadPump drains the connection until the peer goes away. The feed is
// one-way; inbound frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
