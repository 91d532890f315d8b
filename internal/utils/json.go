package utils

import (
	"encoding/json"
	"fmt"

	"chat-relay/internal/models"
)

// ParseEvent decodes one client frame. Frames without an event name are rejected.
func ParseEvent(data []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Event{}, fmt.Errorf("malformed event: %w", err)
	}
	if ev.Event == "" {
		return models.Event{}, fmt.Errorf("malformed event: missing event name")
	}
	return ev, nil
}

// ErrorEvent wraps a message in an "error" event.
func ErrorEvent(chatID, msg string) models.Event {
	return models.Event{Event: models.EventError, ChatID: chatID, Error: msg}
}
