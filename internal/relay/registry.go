package relay

import (
	"context"
	"log/slog"
	"sync"
)

// Registry owns room membership. Joins and leaves on the same room are
// serialized under one lock together with the presence broadcasts they
// cause, so a stable member always observes peer-joined/peer-left events in
// the order they actually happened.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[string]*Conn
	presence *Presence
	logger   *slog.Logger
}

func NewRegistry(presence *Presence, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]*Conn),
		presence: presence,
		logger:   logger.With("component", "registry"),
	}
}

// Join adds the connection to its room, creating the room lazily, and
// announces it to the members that were already there. The joining peer
// does not receive its own announcement.
func (r *Registry) Join(roomID string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Conn)
		r.rooms[roomID] = members
	}

	joined := &Envelope{Type: MessageTypePeerJoined, Identity: c.Identity()}
	for _, peer := range members {
		peer.enqueue(joined)
	}

	members[c.ID()] = c
	r.presence.PeerJoined(context.Background(), roomID, c.ID())

	r.logger.Info("peer joined room", "room", roomID, "identity", c.Identity(), "members", len(members))
}

// Leave removes the connection and announces the departure to the remaining
// members. An empty room is deleted immediately. Returns false if the
// connection was not a member, so callers on concurrent cleanup paths remove
// membership exactly once.
func (r *Registry) Leave(roomID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[c.ID()]; !ok {
		return false
	}

	delete(members, c.ID())
	r.presence.PeerLeft(context.Background(), roomID, c.ID())

	if len(members) == 0 {
		delete(r.rooms, roomID)
		r.logger.Info("room deleted", "room", roomID)
		return true
	}

	left := &Envelope{Type: MessageTypePeerLeft, Identity: c.Identity()}
	for _, peer := range members {
		peer.enqueue(left)
	}

	r.logger.Info("peer left room", "room", roomID, "identity", c.Identity(), "members", len(members))
	return true
}

// Members returns a snapshot of the room's current connections.
func (r *Registry) Members(roomID string) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	out := make([]*Conn, 0, len(members))
	for _, peer := range members {
		out = append(out, peer)
	}
	return out
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
