package handlers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/internal/realtime"
	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const eventTimeout = 5 * time.Second

// WebSocketHandler handles the websocket connection
func WebSocketHandler(events *EventHandler) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by middleware)
		userID, _ := c.Locals("user_id").(string)

		peer := realtime.NewWSPeer(c)
		if err := events.Connect(peer, userID); err != nil {
			slog.Warn("websocket connect failed", "user_id", userID, "err", err)
			events.Disconnect(peer, userID)
			return
		}
		defer events.Disconnect(peer, userID)

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Warn("websocket read failed", "conn_id", peer.ID(), "err", err)
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			events.Handle(ctx, peer, userID, msg)
			cancel()
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AuthMiddleware verifies the bearer token and stores the caller in locals.
func AuthMiddleware(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from query param `access_token` or Authorization header
		token := c.Query("access_token")
		if token == "" {
			authHeader := c.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}

		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}

		id, err := tokens.Validate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals("user_id", id.UserID)
		c.Locals("username", id.Username)
		return c.Next()
	}
}
