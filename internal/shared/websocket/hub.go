package websocket

import (
	"context"
	"time"

	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub keeps the client registry, grouped per auction, and fans broadcast
// messages out to every client watching that auction.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	// InboundMessages carries client messages to module-specific handlers.
	InboundMessages chan *ClientMessage
}

// Client is one websocket connection subscribed to one auction.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	AuctionID string
	ID        string
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage wraps an inbound frame with its origin client.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		broadcast:       make(chan *Message, 64),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		InboundMessages: make(chan *ClientMessage, 64),
	}
}

// Run processes registry and broadcast traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("websocket hub shutting down")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Debug("client registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.AuctionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.AuctionID)
					}
					log.Debug("client unregistered",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients[message.AuctionID] {
				select {
				case client.Send <- message.Data:
				default:
					// Client cannot keep up; drop it.
					close(client.Send)
					delete(h.clients[message.AuctionID], client)
					log.Warn("dropping slow websocket client",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
				}
			}
		}
	}
}

func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("register channel full, closing client",
			zap.String("clientID", client.ID),
		)
		_ = client.Conn.Close()
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
	}
}

// BroadcastToAuction sends data to every client watching the auction.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
	default:
		log.Error("broadcast channel full, message dropped",
			zap.String("auctionID", auctionID),
		)
	}
}

// ReadPump reads frames from the peer and forwards them to the hub's inbound
// channel. Runs as one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Warn("inbound channel full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump pumps hub messages to the peer and keeps the connection alive
// with pings. The single writer per connection lives here.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("websocket write failed",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
