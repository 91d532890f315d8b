package realtime

import (
	"sync"
	"time"

	"chat-relay/internal/models"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const writeWait = 10 * time.Second

// WSPeer wraps a fiber websocket connection. Fiber's websocket implementation
// is not safe for concurrent writers, so every write goes through mu.
type WSPeer struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSPeer(conn *websocket.Conn) *WSPeer {
	return &WSPeer{id: uuid.NewString(), conn: conn}
}

func (p *WSPeer) ID() string { return p.id }

func (p *WSPeer) Send(ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteJSON(ev)
}

func (p *WSPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
