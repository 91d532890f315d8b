package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"chat-relay/internal/models"

	"github.com/gorilla/websocket"
)

// TypingWindow is the quiet period after the last keystroke before "stop typing" is sent.
const TypingWindow = 3 * time.Second

var ErrNoChatOpen = errors.New("client: no chat is open")

// Session is one signed-in client: a websocket for events plus the REST API.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	send    func(models.Event) error

	userID string
	api    API
	logger *slog.Logger

	mu      sync.RWMutex
	viewing string
	typing  map[string]map[string]struct{} // chatID -> typing user ids

	Transcript    *Transcript
	Notifications *Notifications
	Typist        *Typist

	// OnEvent, when set before Run, sees every server event after it was applied.
	OnEvent func(models.Event)
}

// Dial opens the websocket and waits for the server's "connected" greeting.
func Dial(ctx context.Context, wsURL, token string, api API) (*Session, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var hello models.Event
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if hello.Event != models.EventConnected {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", hello.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := newSession(hello.UserID, api, nil)
	s.conn = conn
	s.send = s.writeJSON
	return s, nil
}

func newSession(userID string, api API, send func(models.Event) error) *Session {
	s := &Session{
		userID:        userID,
		api:           api,
		send:          send,
		logger:        slog.Default(),
		typing:        make(map[string]map[string]struct{}),
		Transcript:    NewTranscript(),
		Notifications: NewNotifications(),
	}
	s.Typist = NewTypist(TypingWindow, nil, s.Emit)
	return s
}

func (s *Session) UserID() string { return s.userID }

// Viewing returns the id of the open chat, or "".
func (s *Session) Viewing() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewing
}

// Emit writes one event to the server.
func (s *Session) Emit(ev models.Event) error {
	return s.send(ev)
}

func (s *Session) writeJSON(ev models.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(ev)
}

// Run reads server events until ctx is done or the connection drops.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-done:
		}
	}()

	for {
		var ev models.Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		s.dispatch(ev)
	}
}

func (s *Session) dispatch(ev models.Event) {
	switch ev.Event {
	case models.EventMessageReceived:
		if ev.Message != nil {
			s.Deliver(ev.Message)
		}
	case models.EventTyping:
		s.setTyping(ev.ChatID, ev.UserID, true)
	case models.EventStopTyping:
		s.setTyping(ev.ChatID, ev.UserID, false)
	case models.EventError:
		s.logger.Warn("server error event", "chat_id", ev.ChatID, "error", ev.Error)
	}
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}

// Deliver routes an incoming message by the chat open right now: into the
// live transcript when it matches, otherwise onto the unseen list. It
// returns true when the message went to the transcript.
func (s *Session) Deliver(msg *models.Message) bool {
	// Held across the merge so OpenChat can't swap the transcript in between.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if msg.ChatID == s.viewing {
		if _, ok := s.Transcript.merge(*msg); ok {
			return true
		}
	}
	s.Notifications.Add(msg)
	return false
}

// OpenChat loads chatID's history and makes it the viewed chat. On failure
// the previous chat stays open and nothing is changed.
func (s *Session) OpenChat(ctx context.Context, chatID string) error {
	history, err := s.api.List(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	prev := s.viewing
	s.viewing = chatID
	s.Transcript.Reset(chatID, history)
	s.mu.Unlock()

	// Anything that raced the history fetch is already persisted; merge dedups.
	for _, m := range s.Notifications.ClearChat(chatID) {
		s.Transcript.Merge(m)
	}

	if prev != "" && prev != chatID {
		s.Typist.Stop(prev)
		if err := s.Emit(models.Event{Event: models.EventLeaveChat, ChatID: prev}); err != nil {
			return err
		}
	}
	return s.Emit(models.Event{Event: models.EventJoinChat, ChatID: chatID})
}

// TypingIn lists who is typing in chatID, as last reported by the server.
func (s *Session) TypingIn(chatID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.typing[chatID]))
	for u := range s.typing[chatID] {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func (s *Session) setTyping(chatID, userID string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.typing[chatID]
	if on {
		if !ok {
			set = make(map[string]struct{})
			s.typing[chatID] = set
		}
		set[userID] = struct{}{}
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(s.typing, chatID)
	}
}

// Close stops the typist and closes the websocket.
func (s *Session) Close() error {
	s.Typist.Close()
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}
