package app

import (
	"errors"
	"log/slog"

	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/models"
	"chat-relay/internal/realtime"
	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server is the assembled HTTP + websocket service.
type Server struct {
	App         *fiber.App
	Registry    *realtime.Registry
	Typing      *realtime.Coordinator
	Broadcaster *realtime.Broadcaster
	Messages    *services.MessageService
	Tokens      *services.TokenService
	Blobs       *services.LocalBlobStore
}

// New wires the realtime core to the given store. chats may be nil to read
// chats straight from the store.
func New(cfg config.Config, store services.Store, chats services.ChatReader, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	blobs, err := services.NewLocalBlobStore(cfg.UploadDir, int64(cfg.MaxUploadBytes), cfg.PublicURL)
	if err != nil {
		return nil, err
	}

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, log)
	typing := realtime.NewCoordinator(cfg.TypingWindow, nil, func(ev models.Event) {
		broadcaster.Relay(ev.ChatID, ev, ev.UserID)
	})
	messages := services.NewMessageService(store, chats)
	tokens := services.NewTokenService(cfg.JWTSecret)
	events := handlers.NewEventHandler(registry, typing, broadcaster, messages, log)

	app := fiber.New(fiber.Config{
		AppName:               "chat-relay",
		BodyLimit:             cfg.MaxUploadBytes + 1<<20,
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))

	app.Static("/uploads", blobs.Dir())
	var cache handlers.CacheHealth
	if c, ok := chats.(handlers.CacheHealth); ok {
		cache = c
	}
	app.Get("/health", handlers.HealthHandler(registry, cache))

	api := app.Group("/api", handlers.AuthMiddleware(tokens))
	api.Post("/message/upload", handlers.UploadFileHandler(blobs))
	api.Post("/message", handlers.SendMessageHandler(messages))
	api.Get("/message/:chatId", handlers.ListMessagesHandler(messages))

	// Note: Middleware order matters. WSUpgradeMiddleware rejects plain HTTP
	// before AuthMiddleware checks the token.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware(tokens))
	app.Get("/ws", handlers.WebSocketHandler(events))

	return &Server{
		App:         app,
		Registry:    registry,
		Typing:      typing,
		Broadcaster: broadcaster,
		Messages:    messages,
		Tokens:      tokens,
		Blobs:       blobs,
	}, nil
}

// CloseRealtime stops typing timers and closes every live connection.
func (s *Server) CloseRealtime() error {
	return errors.Join(s.Typing.Close(), s.Registry.Close())
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusInternalServerError {
		slog.Error("unhandled error", "path", c.Path(), "err", err)
		return c.Status(code).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
