package client

import (
	"context"
	"sync"

	"chat-relay/internal/models"
)

// Composer holds the draft for the open chat. A failed send keeps the draft.
type Composer struct {
	s *Session

	mu         sync.Mutex
	draft      string
	attachment *models.UploadResult
}

func NewComposer(s *Session) *Composer {
	return &Composer{s: s}
}

// Type replaces the draft text and signals typing in the open chat.
func (c *Composer) Type(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
	if chatID := c.s.Viewing(); chatID != "" {
		c.s.Typist.Keystroke(chatID)
	}
}

func (c *Composer) Attach(res models.UploadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = &res
}

func (c *Composer) Draft() (string, *models.UploadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft, c.attachment
}

// Send posts the draft to the open chat. Only after the server accepted it
// is the draft cleared, the message added to the transcript, and the other
// members notified.
func (c *Composer) Send(ctx context.Context) (*models.Message, error) {
	chatID := c.s.Viewing()
	if chatID == "" {
		return nil, ErrNoChatOpen
	}

	c.mu.Lock()
	req := models.SendRequest{ChatID: chatID, Content: c.draft}
	if a := c.attachment; a != nil {
		size := a.FileSize
		req.FileURL, req.FileName, req.FileType, req.FileSize = a.FileURL, a.FileName, a.FileType, &size
	}
	c.mu.Unlock()

	msg, err := c.s.api.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.draft = ""
	c.attachment = nil
	c.mu.Unlock()

	c.s.Typist.Stop(chatID)
	c.s.Transcript.Merge(*msg)
	if err := c.s.Emit(models.Event{Event: models.EventNewMessage, ChatID: chatID, Message: msg}); err != nil {
		return msg, err
	}
	return msg, nil
}
