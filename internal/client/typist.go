package client

import (
	"time"

	"chat-relay/internal/debounce"
	"chat-relay/internal/models"
)

// Typist turns keystrokes into one "typing" / "stop typing" pair per pause.
type Typist struct {
	keys *debounce.Keyed[string]
	emit func(models.Event) error
}

// NewTypist emits through emit. A nil after uses real timers.
func NewTypist(window time.Duration, after debounce.AfterFunc, emit func(models.Event) error) *Typist {
	t := &Typist{emit: emit}
	t.keys = debounce.NewKeyed(window, after, func(chatID string) {
		_ = t.emit(models.Event{Event: models.EventStopTyping, ChatID: chatID})
	})
	return t
}

// Keystroke records activity in chatID. Only the first keystroke after a pause emits "typing".
func (t *Typist) Keystroke(chatID string) bool {
	if !t.keys.Touch(chatID) {
		return false
	}
	_ = t.emit(models.Event{Event: models.EventTyping, ChatID: chatID})
	return true
}

// Stop ends typing in chatID now, e.g. when the message is sent.
func (t *Typist) Stop(chatID string) bool {
	if !t.keys.Cancel(chatID) {
		return false
	}
	_ = t.emit(models.Event{Event: models.EventStopTyping, ChatID: chatID})
	return true
}

func (t *Typist) Close() {
	t.keys.Stop()
}
