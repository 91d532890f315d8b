package client

import (
	"sync"

	"chat-relay/internal/models"
)

// Transcript is the live message list of the chat being viewed.
type Transcript struct {
	mu       sync.RWMutex
	chatID   string
	messages []models.Message
	ids      map[string]struct{}
}

func NewTranscript() *Transcript {
	return &Transcript{ids: make(map[string]struct{})}
}

// Reset replaces the transcript with chatID's history.
func (t *Transcript) Reset(chatID string, history []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chatID = chatID
	t.messages = t.messages[:0]
	t.ids = make(map[string]struct{}, len(history))
	for _, m := range history {
		t.appendLocked(m)
	}
}

// Merge appends msg if it belongs to this chat and isn't already present.
func (t *Transcript) Merge(msg models.Message) bool {
	added, _ := t.merge(msg)
	return added
}

// merge is Merge that also reports whether msg belonged to this chat.
func (t *Transcript) merge(msg models.Message) (added, sameChat bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.ChatID != t.chatID {
		return false, false
	}
	return t.appendLocked(msg), true
}

func (t *Transcript) appendLocked(m models.Message) bool {
	if _, dup := t.ids[m.ID]; dup {
		return false
	}
	t.ids[m.ID] = struct{}{}
	t.messages = append(t.messages, m)
	return true
}

func (t *Transcript) ChatID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chatID
}

func (t *Transcript) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.Message(nil), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
