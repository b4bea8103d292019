package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PresenceStore mirrors online/offline transitions into an external store so
// sibling processes can read presence without holding a socket. Implemented
// by the Redis adapter; nil disables mirroring.
type PresenceStore interface {
	SetOnline(ctx context.Context, tenantID, userID string) error
	SetOffline(ctx context.Context, tenantID, userID string) error
}

// Hub tracks live connections and named broadcast rooms. It is constructed
// once in main and handed to everything that fans out events; it is never a
// package-level singleton so tests can run one hub per case.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client              // client id -> client
	rooms       map[string]map[string]*Client   // room -> client id -> client
	clientRooms map[string]map[string]struct{} // client id -> joined rooms
	userConns   map[string]map[string]int       // tenant id -> user id -> live connections

	presence PresenceStore
	log      zerolog.Logger
}

func NewHub(presence PresenceStore, log zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		clientRooms: make(map[string]map[string]struct{}),
		userConns:   make(map[string]map[string]int),
		presence:    presence,
		log:         log.With().Str("component", "hub").Logger(),
	}
}

// Attach registers an authenticated connection, auto-joins its tenant room
// and announces presence when this is the user's first live connection.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.clientRooms[c.ID] = make(map[string]struct{})
	h.joinLocked(TenantRoom(c.TenantID), c)

	if h.userConns[c.TenantID] == nil {
		h.userConns[c.TenantID] = make(map[string]int)
	}
	h.userConns[c.TenantID][c.UserID]++
	first := h.userConns[c.TenantID][c.UserID] == 1
	h.mu.Unlock()

	if first {
		h.Broadcast(TenantRoom(c.TenantID), NewEvent(EventUserOnline, PresencePayload{UserID: c.UserID}))
		h.mirrorPresence(c.TenantID, c.UserID, true)
	}
	h.log.Debug().Str("client", c.ID).Str("user", c.UserID).Str("tenant", c.TenantID).Msg("client attached")
}

// Detach removes a connection from every room and announces offline when the
// user's last connection is gone.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for room := range h.clientRooms[c.ID] {
		h.leaveLocked(room, c.ID)
	}
	delete(h.clientRooms, c.ID)

	last := false
	if conns, ok := h.userConns[c.TenantID]; ok {
		conns[c.UserID]--
		if conns[c.UserID] <= 0 {
			delete(conns, c.UserID)
			last = true
		}
		if len(conns) == 0 {
			delete(h.userConns, c.TenantID)
		}
	}
	h.mu.Unlock()

	c.Close()

	if last {
		h.Broadcast(TenantRoom(c.TenantID), NewEvent(EventUserOffline, PresencePayload{UserID: c.UserID}))
		h.mirrorPresence(c.TenantID, c.UserID, false)
	}
	h.log.Debug().Str("client", c.ID).Str("user", c.UserID).Msg("client detached")
}

// Join adds an attached client to a room. Authorization happens before this
// call; the hub is transport only.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	h.joinLocked(room, c)
}

func (h *Hub) joinLocked(room string, c *Client) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
	h.clientRooms[c.ID][room] = struct{}{}
}

// Leave removes the client from a room.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c.ID)
	if memberships, ok := h.clientRooms[c.ID]; ok {
		delete(memberships, room)
	}
}

func (h *Hub) leaveLocked(room, clientID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers an event to every member of a room.
func (h *Hub) Broadcast(room string, ev Event) {
	h.BroadcastExcept(room, ev, "")
}

// BroadcastExcept delivers to every room member except connections owned by
// excludeUserID. Used so mark-read and typing relays never echo back to the
// originating user.
func (h *Hub) BroadcastExcept(room string, ev Event, excludeUserID string) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for _, c := range members {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Send(ev) {
			h.log.Warn().Str("client", c.ID).Str("room", room).Msg("dropping slow client")
			h.Detach(c)
		}
	}
}

// InRoom reports whether the client currently belongs to the room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c.ID]
	return ok
}

// RoomSize returns the current member count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.clientRooms = make(map[string]map[string]struct{})
	h.userConns = make(map[string]map[string]int)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) mirrorPresence(tenantID, userID string, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.presence.SetOnline(ctx, tenantID, userID)
	} else {
		err = h.presence.SetOffline(ctx, tenantID, userID)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("tenant", tenantID).Str("user", userID).Msg("presence mirror failed")
	}
}
