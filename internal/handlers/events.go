package handlers

import (
	"context"
	"errors"
	"log/slog"

	"chat-relay/internal/models"
	"chat-relay/internal/realtime"
	"chat-relay/internal/services"
	"chat-relay/internal/utils"
)

// MessageResolver is what the event loop needs from the message service.
type MessageResolver interface {
	Resolve(ctx context.Context, messageID string) (*models.Message, error)
	Membership(ctx context.Context, chatID, userID string) (*models.Chat, error)
}

// EventHandler runs the real-time protocol for one process. It is shared by
// every websocket connection.
type EventHandler struct {
	registry    *realtime.Registry
	typing      *realtime.Coordinator
	broadcaster *realtime.Broadcaster
	messages    MessageResolver
	logger      *slog.Logger
}

func NewEventHandler(
	registry *realtime.Registry,
	typing *realtime.Coordinator,
	broadcaster *realtime.Broadcaster,
	messages MessageResolver,
	logger *slog.Logger,
) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		registry:    registry,
		typing:      typing,
		broadcaster: broadcaster,
		messages:    messages,
		logger:      logger,
	}
}

// Connect registers the peer, joins its personal room and greets it.
func (h *EventHandler) Connect(peer realtime.Peer, userID string) error {
	if err := h.registry.Register(peer, userID); err != nil {
		return err
	}
	h.logger.Debug("peer connected", "conn_id", peer.ID(), "user_id", userID)
	return peer.Send(models.Event{Event: models.EventConnected, UserID: userID})
}

// Disconnect forgets the peer and ends any typing state it was holding.
func (h *EventHandler) Disconnect(peer realtime.Peer, userID string) {
	for _, roomID := range h.registry.Deregister(peer.ID()) {
		if !h.registry.UserInRoom(userID, roomID) {
			h.typing.StopTyping(roomID, userID)
		}
	}
	_ = peer.Close()
	h.logger.Debug("peer disconnected", "conn_id", peer.ID(), "user_id", userID)
}

// Handle processes one client frame. Problems are reported back to the
// sender as "error" events; nothing here closes the connection.
func (h *EventHandler) Handle(ctx context.Context, peer realtime.Peer, userID string, raw []byte) {
	ev, err := utils.ParseEvent(raw)
	if err != nil {
		h.reply(peer, utils.ErrorEvent("", err.Error()))
		return
	}

	switch ev.Event {
	case models.EventSetup:
		h.handleSetup(peer, userID, ev)
	case models.EventJoinChat:
		h.handleJoin(ctx, peer, userID, ev)
	case models.EventLeaveChat:
		h.handleLeave(peer, userID, ev)
	case models.EventTyping:
		h.handleTyping(peer, userID, ev)
	case models.EventStopTyping:
		if ev.ChatID != "" {
			h.typing.StopTyping(ev.ChatID, userID)
		}
	case models.EventNewMessage:
		h.handleNewMessage(ctx, peer, userID, ev)
	default:
		h.reply(peer, utils.ErrorEvent(ev.ChatID, "unknown event: "+ev.Event))
	}
}

func (h *EventHandler) handleSetup(peer realtime.Peer, userID string, ev models.Event) {
	if ev.UserID != "" && ev.UserID != userID {
		h.reply(peer, utils.ErrorEvent("", "setup user does not match token"))
		return
	}
	h.reply(peer, models.Event{Event: models.EventConnected, UserID: userID})
}

func (h *EventHandler) handleJoin(ctx context.Context, peer realtime.Peer, userID string, ev models.Event) {
	if ev.ChatID == "" {
		h.reply(peer, utils.ErrorEvent("", "chatId is required"))
		return
	}
	if _, err := h.messages.Membership(ctx, ev.ChatID, userID); err != nil {
		h.reply(peer, utils.ErrorEvent(ev.ChatID, publicError(err)))
		return
	}
	if err := h.registry.Join(peer.ID(), ev.ChatID); err != nil {
		utils.LogError(err, "join chat", "conn_id", peer.ID())
		return
	}
	h.reply(peer, models.Event{Event: models.EventJoined, ChatID: ev.ChatID})

	// catch the newcomer up on anyone already typing
	for _, typist := range h.typing.Typing(ev.ChatID) {
		if typist != userID {
			h.reply(peer, models.Event{Event: models.EventTyping, ChatID: ev.ChatID, UserID: typist})
		}
	}
}

func (h *EventHandler) handleLeave(peer realtime.Peer, userID string, ev models.Event) {
	if ev.ChatID == userID {
		h.reply(peer, utils.ErrorEvent(ev.ChatID, "the personal room can't be left"))
		return
	}
	if !h.registry.Leave(peer.ID(), ev.ChatID) {
		return
	}
	if !h.registry.UserInRoom(userID, ev.ChatID) {
		h.typing.StopTyping(ev.ChatID, userID)
	}
}

func (h *EventHandler) handleTyping(peer realtime.Peer, userID string, ev models.Event) {
	if !h.registry.InRoom(peer.ID(), ev.ChatID) {
		h.reply(peer, utils.ErrorEvent(ev.ChatID, "join the chat before typing"))
		return
	}
	h.typing.StartTyping(ev.ChatID, userID)
}

// handleNewMessage re-reads the message from the store so only persisted,
// fully populated messages written by this user are fanned out.
func (h *EventHandler) handleNewMessage(ctx context.Context, peer realtime.Peer, userID string, ev models.Event) {
	if ev.Message == nil || ev.Message.ID == "" {
		h.reply(peer, utils.ErrorEvent(ev.ChatID, "message id is required"))
		return
	}

	msg, err := h.messages.Resolve(ctx, ev.Message.ID)
	if err != nil {
		h.reply(peer, utils.ErrorEvent(ev.ChatID, publicError(err)))
		return
	}
	if msg.Sender.ID != userID {
		h.reply(peer, utils.ErrorEvent(msg.ChatID, "message was not sent by this user"))
		return
	}

	n, err := h.broadcaster.Deliver(msg)
	if err != nil {
		utils.LogError(err, "deliver message", "message_id", msg.ID)
		return
	}
	h.logger.Debug("message delivered", "message_id", msg.ID, "chat_id", msg.ChatID, "peers", n)
}

func (h *EventHandler) reply(peer realtime.Peer, ev models.Event) {
	if err := peer.Send(ev); err != nil {
		h.logger.Debug("reply dropped", "conn_id", peer.ID(), "event", ev.Event, "err", err)
	}
}

// publicError hides store internals from clients.
func publicError(err error) string {
	var ts *services.TransientStoreError
	if errors.As(err, &ts) {
		return "temporarily unavailable"
	}
	return err.Error()
}
