package services

import (
	"context"
	"sync"
	"time"

	"chat-relay/internal/models"

	"github.com/google/uuid"
)

type memChat struct {
	chat    models.Chat
	members []string
}

// MemoryStore keeps everything in process. Used with STORE=memory and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	chats    map[string]*memChat
	byChat   map[string][]*models.Message
	messages map[string]*models.Message
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		chats:    make(map[string]*memChat),
		byChat:   make(map[string][]*models.Message),
		messages: make(map[string]*models.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) PutUser(_ context.Context, u models.User) error {
	if u.ID == "" {
		return invalid("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

// PutChat stores the chat and its membership. Members that are not known
// users yet are recorded from the given User values.
func (s *MemoryStore) PutChat(_ context.Context, c models.Chat) error {
	if c.ID == "" {
		return invalid("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		if _, known := s.users[u.ID]; !known {
			s.users[u.ID] = u
		}
		members = append(members, u.ID)
	}
	if prev, ok := s.chats[c.ID]; ok && c.LatestMessageID == "" {
		c.LatestMessageID = prev.chat.LatestMessageID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.Users = nil
	s.chats[c.ID] = &memChat{chat: c, members: members}
	return nil
}

func (s *MemoryStore) ChatByID(_ context.Context, id string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatLocked(id)
}

func (s *MemoryStore) chatLocked(id string) (*models.Chat, error) {
	mc, ok := s.chats[id]
	if !ok {
		return nil, notFound("chat", id)
	}
	chat := mc.chat
	chat.Users = make([]models.User, 0, len(mc.members))
	for _, uid := range mc.members {
		chat.Users = append(chat.Users, s.users[uid])
	}
	return &chat, nil
}

func (s *MemoryStore) Append(_ context.Context, nm models.NewMessage) (*models.Message, error) {
	if err := checkNewMessage(nm); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.chatLocked(nm.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(nm.SenderID) {
		return nil, notFound("chat", nm.ChatID)
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		Sender:     s.users[nm.SenderID],
		ChatID:     nm.ChatID,
		Content:    nm.Content,
		Attachment: copyAttachment(nm.Attachment),
		CreatedAt:  s.now(),
	}
	s.messages[msg.ID] = msg
	s.byChat[nm.ChatID] = append(s.byChat[nm.ChatID], msg)
	s.chats[nm.ChatID].chat.LatestMessageID = msg.ID

	out := copyMessage(msg)
	chat.LatestMessageID = msg.ID
	out.Chat = chat
	return out, nil
}

func (s *MemoryStore) ListByChat(_ context.Context, chatID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byChat[chatID]
	out := make([]models.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, *copyMessage(m))
	}
	return out, nil
}

func (s *MemoryStore) MessageByID(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message", id)
	}
	return copyMessage(m), nil
}

func copyMessage(m *models.Message) *models.Message {
	out := *m
	out.Attachment = copyAttachment(m.Attachment)
	out.Chat = nil
	return &out
}

func copyAttachment(a *models.Attachment) *models.Attachment {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
