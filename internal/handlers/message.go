package handlers

import (
	"log/slog"
	"net/http"

	"chat-relay/internal/models"
	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SendMessageHandler persists a message. Fan-out happens when the client
// follows up with a "new message" event on its socket.
func SendMessageHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.SendRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		msg, err := messages.Send(c.UserContext(), userID, req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(http.StatusCreated).JSON(msg)
	}
}

// ListMessagesHandler returns a chat's history, oldest first, to a member of the chat.
func ListMessagesHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		chatID := c.Params("chatId")

		if _, err := messages.Membership(c.UserContext(), chatID, userID); err != nil {
			return errorResponse(c, err)
		}
		list, err := messages.ListByChat(c.UserContext(), chatID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(list)
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case services.IsValidation(err):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case services.IsNotFound(err):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case services.IsTransient(err):
		slog.Error("store unavailable", "path", c.Path(), "err", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporarily unavailable"})
	default:
		slog.Error("request failed", "path", c.Path(), "err", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
