package realtime

import (
	"errors"
	"log/slog"

	"chat-relay/internal/models"
)

var ErrChatNotPopulated = errors.New("realtime: message chat is not populated")

// Broadcaster fans events out to the peers in the Registry. Delivery is
// fire-and-forget: a peer that fails a write is skipped, nothing is queued.
type Broadcaster struct {
	reg    *Registry
	logger *slog.Logger
}

func NewBroadcaster(reg *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{reg: reg, logger: logger}
}

// Deliver sends "message received" to every connection of every chat member
// other than the sender, via their personal rooms. It returns the number of
// peers targeted.
func (b *Broadcaster) Deliver(msg *models.Message) (int, error) {
	if msg == nil || !msg.Populated() {
		return 0, ErrChatNotPopulated
	}

	ev := models.Event{Event: models.EventMessageReceived, ChatID: msg.ChatID, Message: msg}
	seen := make(map[string]struct{}, len(msg.Chat.Users))
	targeted := 0
	for _, u := range msg.Chat.Users {
		if u.ID == msg.Sender.ID {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		targeted += b.send(b.reg.PeersIn(u.ID, ""), ev)
	}
	return targeted, nil
}

// Relay sends ev to everyone in roomID except the connections of exceptUserID.
func (b *Broadcaster) Relay(roomID string, ev models.Event, exceptUserID string) int {
	return b.send(b.reg.PeersIn(roomID, exceptUserID), ev)
}

func (b *Broadcaster) send(peers []Peer, ev models.Event) int {
	for _, p := range peers {
		if err := p.Send(ev); err != nil {
			// The read loop of a dead peer deregisters it.
			b.logger.Debug("dropped event for peer", "conn_id", p.ID(), "event", ev.Event, "err", err)
		}
	}
	return len(peers)
}
