package realtime

import (
	"sort"
	"time"

	"chat-relay/internal/debounce"
	"chat-relay/internal/models"
)

// DefaultTypingWindow is how long a typist may stay quiet before "stop typing" is sent.
const DefaultTypingWindow = 3 * time.Second

type typingKey struct {
	roomID string
	userID string
}

// Coordinator tracks who is typing in which chat room and emits only the
// transitions: idle to typing, and typing to idle (explicit or on expiry).
type Coordinator struct {
	timers *debounce.Keyed[typingKey]
	emit   func(models.Event)
}

// NewCoordinator wires the typing state to emit. A nil after uses real timers.
func NewCoordinator(window time.Duration, after debounce.AfterFunc, emit func(models.Event)) *Coordinator {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	c := &Coordinator{emit: emit}
	c.timers = debounce.NewKeyed(window, after, func(k typingKey) {
		c.emit(stopEvent(k))
	})
	return c
}

// StartTyping records activity for userID in roomID. It returns true when the
// user went from idle to typing, which is the only time "typing" is emitted.
func (c *Coordinator) StartTyping(roomID, userID string) bool {
	k := typingKey{roomID: roomID, userID: userID}
	if !c.timers.Touch(k) {
		return false
	}
	c.emit(models.Event{Event: models.EventTyping, ChatID: roomID, UserID: userID})
	return true
}

// StopTyping ends the typing state early. It returns false if the user wasn't typing.
func (c *Coordinator) StopTyping(roomID, userID string) bool {
	k := typingKey{roomID: roomID, userID: userID}
	if !c.timers.Cancel(k) {
		return false
	}
	c.emit(stopEvent(k))
	return true
}

// Typing lists the users typing in roomID, sorted.
func (c *Coordinator) Typing(roomID string) []string {
	var users []string
	for _, k := range c.timers.Keys() {
		if k.roomID == roomID {
			users = append(users, k.userID)
		}
	}
	sort.Strings(users)
	return users
}

// Close stops every pending timer without emitting.
func (c *Coordinator) Close() error {
	c.timers.Stop()
	return nil
}

func stopEvent(k typingKey) models.Event {
	return models.Event{Event: models.EventStopTyping, ChatID: k.roomID, UserID: k.userID}
}
