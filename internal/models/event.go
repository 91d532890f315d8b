package models

// Real-time event names. Client to server: setup, join chat, leave chat,
// typing, stop typing, new message. Server to client: connected, joined,
// typing, stop typing, message received, error.
const (
	EventSetup           = "setup"
	EventJoinChat        = "join chat"
	EventLeaveChat       = "leave chat"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
	EventNewMessage      = "new message"
	EventConnected       = "connected"
	EventJoined          = "joined"
	EventMessageReceived = "message received"
	EventError           = "error"
)

// Event is the WebSocket envelope used in both directions.
type Event struct {
	Event   string   `json:"event"`
	ChatID  string   `json:"chatId,omitempty"`
	UserID  string   `json:"userId,omitempty"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}
