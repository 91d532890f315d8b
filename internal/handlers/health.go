package handlers

import (
	"context"
	"time"

	"chat-relay/internal/realtime"
	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
)

const cachePingTimeout = time.Second

// CacheHealth is the optional chat cache in front of the store.
type CacheHealth interface {
	Ping(ctx context.Context) error
	Stats() services.CacheStats
}

// HealthHandler reports live connection counts and, when a cache is
// configured, whether it answers. A down cache only degrades the service
// since chat reads fall back to the store.
func HealthHandler(registry *realtime.Registry, cache CacheHealth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":      "ok",
			"connections": registry.ConnectionCount(),
			"rooms":       registry.RoomCount(),
		}
		if cache != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), cachePingTimeout)
			defer cancel()

			state := "ok"
			if err := cache.Ping(ctx); err != nil {
				state = "unavailable"
				body["status"] = "degraded"
			}
			body["cache"] = fiber.Map{"status": state, "stats": cache.Stats()}
		}
		return c.JSON(body)
	}
}
