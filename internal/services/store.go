package services

import (
	"context"
	"strings"

	"chat-relay/internal/models"
)

// ChatReader resolves a chat with its member list.
type ChatReader interface {
	ChatByID(ctx context.Context, id string) (*models.Chat, error)
}

// Store is the durable message log. Append returns the message with its
// sender and chat (including members) populated and leaves the chat's
// LatestMessageID pointing at it.
type Store interface {
	ChatReader
	Append(ctx context.Context, nm models.NewMessage) (*models.Message, error)
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	MessageByID(ctx context.Context, id string) (*models.Message, error)
}

// Directory lets development setups and tests stand in for the external
// user and chat management service.
type Directory interface {
	PutUser(ctx context.Context, u models.User) error
	PutChat(ctx context.Context, c models.Chat) error
}

// checkNewMessage is the store-boundary half of send validation.
func checkNewMessage(nm models.NewMessage) error {
	if nm.ChatID == "" {
		return invalid("chatId", "is required")
	}
	if nm.SenderID == "" {
		return invalid("sender", "is required")
	}
	if strings.TrimSpace(nm.Content) == "" && nm.Attachment == nil {
		return invalid("content", "content or attachment is required")
	}
	return nil
}
