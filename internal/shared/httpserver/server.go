package httpserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/infra/httpapi"
	auctionws "github.com/bidhaus/auction-engine/internal/auction/infra/websocket"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	sharedws "github.com/bidhaus/auction-engine/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type Server struct {
	app *fiber.App
}

// NewServer builds the fiber app with the API routes and the live auction
// websocket endpoint.
func NewServer(handler *httpapi.AuctionHandler, hub *sharedws.Hub, wsHandler *auctionws.AuctionWSHandler) *Server {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		log.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
		)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	handler.Register(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/auctions/:id", websocket.New(func(conn *websocket.Conn) {
		auctionID := conn.Params("id")
		if _, err := uuid.Parse(auctionID); err != nil {
			_ = conn.Close()
			return
		}

		client := &sharedws.Client{
			Hub:       hub,
			Conn:      conn,
			Send:      make(chan []byte, 16),
			AuctionID: auctionID,
			ID:        uuid.NewString(),
		}
		hub.RegisterClient(client)

		ctx := context.Background()
		go client.WritePump(ctx)
		wsHandler.SendInitialState(ctx, client)
		client.ReadPump(ctx)
	}))

	return &Server{app: app}
}

// Start serves on addr and shuts down cleanly on SIGINT/SIGTERM.
func (s *Server) Start(addr string) error {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(ctx)
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
