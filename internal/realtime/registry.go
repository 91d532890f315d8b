// Package realtime holds the ephemeral state of live connections: which
// connection belongs to which user, which rooms it joined, and who is typing.
package realtime

import (
	"errors"
	"sync"

	"chat-relay/internal/models"
)

var (
	ErrUnknownConnection   = errors.New("realtime: unknown connection")
	ErrDuplicateConnection = errors.New("realtime: connection already registered")
)

// Peer is one live client connection.
type Peer interface {
	ID() string
	Send(ev models.Event) error
	Close() error
}

type connEntry struct {
	peer   Peer
	userID string
	rooms  map[string]struct{}
}

// Registry maps connections to users and rooms. A user's personal room is
// keyed by the user id and joined automatically on Register.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connEntry
	// roomID -> set of connection ids
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connEntry),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register records a new connection for userID and joins its personal room.
func (r *Registry) Register(p Peer, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[p.ID()]; exists {
		return ErrDuplicateConnection
	}
	r.conns[p.ID()] = &connEntry{peer: p, userID: userID, rooms: make(map[string]struct{})}
	r.joinLocked(p.ID(), userID)
	return nil
}

// Join adds the connection to roomID. Joining twice is a no-op.
func (r *Registry) Join(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return ErrUnknownConnection
	}
	r.joinLocked(connID, roomID)
	return nil
}

func (r *Registry) joinLocked(connID, roomID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[connID] = struct{}{}
	r.conns[connID].rooms[roomID] = struct{}{}
}

// Leave removes the connection from roomID and reports whether it was a member.
// The personal room can't be left; only Deregister removes a connection from it.
func (r *Registry) Leave(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok || roomID == e.userID {
		return false
	}
	if _, joined := e.rooms[roomID]; !joined {
		return false
	}
	r.leaveLocked(connID, roomID)
	delete(e.rooms, roomID)
	return true
}

func (r *Registry) leaveLocked(connID, roomID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// Deregister forgets the connection and returns the rooms it had joined.
func (r *Registry) Deregister(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(e.rooms))
	for roomID := range e.rooms {
		r.leaveLocked(connID, roomID)
		rooms = append(rooms, roomID)
	}
	delete(r.conns, connID)
	return rooms
}

// MembersOf returns the connection ids currently in roomID.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// PeersIn snapshots the peers in roomID, skipping every connection owned by
// exceptUserID. Pass "" to include everyone.
func (r *Registry) PeersIn(roomID, exceptUserID string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	peers := make([]Peer, 0, len(members))
	for id := range members {
		e := r.conns[id]
		if exceptUserID != "" && e.userID == exceptUserID {
			continue
		}
		peers = append(peers, e.peer)
	}
	return peers
}

// InRoom reports whether connID has joined roomID.
func (r *Registry) InRoom(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// UserInRoom reports whether any connection of userID has joined roomID.
func (r *Registry) UserInRoom(userID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.rooms[roomID] {
		if r.conns[id].userID == userID {
			return true
		}
	}
	return false
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close closes every peer and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	peers := make([]Peer, 0, len(r.conns))
	for _, e := range r.conns {
		peers = append(peers, e.peer)
	}
	r.conns = make(map[string]*connEntry)
	r.rooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	var errs []error
	for _, p := range peers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
