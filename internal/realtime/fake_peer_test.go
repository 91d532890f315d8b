package realtime

import (
	"errors"
	"sync"

	"chat-relay/internal/models"
)

type fakePeer struct {
	id string

	mu     sync.Mutex
	events []models.Event
	closed bool
	fail   bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail || p.closed {
		return errors.New("peer gone")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) received() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

func (p *fakePeer) names() []string {
	var names []string
	for _, ev := range p.received() {
		names = append(names, ev.Event)
	}
	return names
}
