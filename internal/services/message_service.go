package services

import (
	"context"
	"log/slog"
	"strings"

	"chat-relay/internal/models"
)

type chatInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// MessageService is the front door for sending and reading messages. Every
// message it returns has its sender, chat and chat members populated.
type MessageService struct {
	store Store
	chats ChatReader
}

// NewMessageService reads chats through chats when given (e.g. a ChatCache), else straight from store.
func NewMessageService(store Store, chats ChatReader) *MessageService {
	if chats == nil {
		chats = store
	}
	return &MessageService{store: store, chats: chats}
}

// ValidateSend turns a Send API body into a NewMessage.
func ValidateSend(senderID string, req models.SendRequest) (models.NewMessage, error) {
	nm := models.NewMessage{
		ChatID:   strings.TrimSpace(req.ChatID),
		SenderID: senderID,
		Content:  strings.TrimSpace(req.Content),
	}
	if nm.ChatID == "" {
		return models.NewMessage{}, invalid("chatId", "is required")
	}

	hasFile := req.FileURL != "" || req.FileName != "" || req.FileType != "" || req.FileSize != nil
	if hasFile {
		switch {
		case req.FileURL == "":
			return models.NewMessage{}, invalid("fileUrl", "is required with an attachment")
		case req.FileName == "":
			return models.NewMessage{}, invalid("fileName", "is required with an attachment")
		case req.FileType == "":
			return models.NewMessage{}, invalid("fileType", "is required with an attachment")
		case req.FileSize == nil:
			return models.NewMessage{}, invalid("fileSize", "is required with an attachment")
		case *req.FileSize < 0:
			return models.NewMessage{}, invalid("fileSize", "must not be negative")
		}
		nm.Attachment = &models.Attachment{
			URL:      req.FileURL,
			Name:     req.FileName,
			MimeType: req.FileType,
			Size:     *req.FileSize,
		}
	}

	if nm.Content == "" && nm.Attachment == nil {
		return models.NewMessage{}, invalid("content", "content or attachment is required")
	}
	return nm, nil
}

// Send validates, persists and returns the populated message.
func (s *MessageService) Send(ctx context.Context, senderID string, req models.SendRequest) (*models.Message, error) {
	nm, err := ValidateSend(senderID, req)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.Append(ctx, nm)
	if err != nil {
		return nil, err
	}

	if inv, ok := s.chats.(chatInvalidator); ok {
		if err := inv.Invalidate(ctx, msg.ChatID); err != nil {
			slog.Warn("chat cache invalidation failed", "chat_id", msg.ChatID, "err", err)
		}
	}

	if !msg.Populated() {
		if msg.Chat, err = s.chats.ChatByID(ctx, msg.ChatID); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// ListByChat returns the chat's messages oldest first, each carrying the chat and its members.
func (s *MessageService) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	chat, err := s.chats.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Chat = chat
	}
	return messages, nil
}

// Resolve loads a stored message by id, fully populated for broadcasting.
func (s *MessageService) Resolve(ctx context.Context, messageID string) (*models.Message, error) {
	msg, err := s.store.MessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Chat, err = s.chats.ChatByID(ctx, msg.ChatID); err != nil {
		return nil, err
	}
	return msg, nil
}

// Membership returns the chat if userID belongs to it. Non-members get a NotFoundError.
func (s *MessageService) Membership(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.chats.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, notFound("chat", chatID)
	}
	return chat, nil
}
