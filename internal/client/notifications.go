package client

import (
	"sync"
	"time"
	"unicode/utf8"

	"chat-relay/internal/models"
)

const previewLen = 60

// Unseen summarises a message that arrived for a chat the user wasn't viewing.
type Unseen struct {
	MessageID  string
	ChatID     string
	ChatName   string
	SenderName string
	Preview    string
	At         time.Time

	message models.Message
}

// Notifications is the unseen-message list, most recent first. Adding the
// same message id twice keeps a single entry.
type Notifications struct {
	mu    sync.Mutex
	items []Unseen
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

// Add prepends msg unless its id is already listed. It reports whether msg was added.
func (n *Notifications) Add(msg *models.Message) bool {
	if msg == nil || msg.ID == "" {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, it := range n.items {
		if it.MessageID == msg.ID {
			return false
		}
	}
	u := Unseen{
		MessageID:  msg.ID,
		ChatID:     msg.ChatID,
		ChatName:   chatTitle(msg),
		SenderName: msg.Sender.Name,
		Preview:    preview(msg),
		At:         msg.CreatedAt,
		message:    *msg,
	}
	n.items = append([]Unseen{u}, n.items...)
	return true
}

// ClearChat removes every entry for chatID and returns the removed messages, oldest first.
func (n *Notifications) ClearChat(chatID string) []models.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	var removed []models.Message
	kept := n.items[:0]
	for _, it := range n.items {
		if it.ChatID == chatID {
			removed = append([]models.Message{it.message}, removed...)
			continue
		}
		kept = append(kept, it)
	}
	n.items = kept
	return removed
}

func (n *Notifications) Items() []Unseen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Unseen(nil), n.items...)
}

func (n *Notifications) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

func (n *Notifications) CountFor(chatID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, it := range n.items {
		if it.ChatID == chatID {
			count++
		}
	}
	return count
}

// chatTitle is the group name for group chats and the sender's name otherwise.
func chatTitle(msg *models.Message) string {
	if msg.Chat != nil && msg.Chat.IsGroupChat && msg.Chat.ChatName != "" {
		return msg.Chat.ChatName
	}
	return msg.Sender.Name
}

func preview(msg *models.Message) string {
	if msg.Content == "" && msg.Attachment != nil {
		return "[file] " + msg.Attachment.Name
	}
	if utf8.RuneCountInString(msg.Content) <= previewLen {
		return msg.Content
	}
	runes := []rune(msg.Content)
	return string(runes[:previewLen]) + "..."
}
