package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"stagechat/internal/pkg/errs"
	"stagechat/internal/pkg/logx"
)

// Outbound is the send side of a connection. The hub fans events out
// through it, which keeps fan-out testable without a live transport.
type Outbound interface {
	Send(e Event)
}

// Hub is the session registry: it tracks which connection belongs to which
// logged-in identity and which rooms each connection has joined, and it
// performs room-scoped and global fan-out.
//
// Membership is keyed by connection, not identity, so a reconnect loses
// membership. All maps are guarded by one RWMutex; the hub holds no locks
// across external calls.
type Hub struct {
	mu sync.RWMutex

	// conns maps connection id to its send side.
	conns map[string]Outbound

	// nicknames maps connection id to its bound identity, present only
	// after a successful login.
	nicknames map[string]string

	// members maps room id to the set of joined connection ids.
	members map[int64]map[string]struct{}

	logger zerolog.Logger
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]Outbound),
		nicknames: make(map[string]string),
		members:   make(map[int64]map[string]struct{}),
		logger:    logx.With("hub"),
	}
}

// Register adds a connection. Called once per transport connect.
func (h *Hub) Register(connID string, out Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[connID] = out
	h.logger.Info().Str("conn_id", connID).Int("total_conns", len(h.conns)).Msg("connection registered")
}

// Unregister removes a connection and releases every room membership it
// holds. The identity itself survives; only the binding dies.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connID]; !ok {
		return
	}

	delete(h.conns, connID)
	delete(h.nicknames, connID)

	for roomID, set := range h.members {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.members, roomID)
		}
	}

	h.logger.Info().Str("conn_id", connID).Int("total_conns", len(h.conns)).Msg("connection unregistered")
}

// Bind associates exactly one identity with a connection for its lifetime.
// Rebinding is rejected: a second login on the same connection fails.
func (h *Hub) Bind(connID string, nickname string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connID]; !ok {
		return errs.NewError(errs.ErrUnknown)
	}

	if _, bound := h.nicknames[connID]; bound {
		return errs.NewError(errs.ErrAlreadyAuthenticated)
	}

	h.nicknames[connID] = nickname
	return nil
}

// Nickname returns the identity bound to the connection, if any.
func (h *Hub) Nickname(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nickname, ok := h.nicknames[connID]
	return nickname, ok
}

// Join adds the connection to the room's membership set.
func (h *Hub) Join(roomID int64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connID]; !ok {
		return
	}

	set, ok := h.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		h.members[roomID] = set
	}
	set[connID] = struct{}{}
}

// Leave removes the connection from the room's membership set. Removing a
// non-member is a no-op, so the operation is idempotent.
func (h *Hub) Leave(roomID int64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.members[roomID]
	if !ok {
		return
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(h.members, roomID)
	}
}

// InRoom reports whether the connection is currently a member of the room.
func (h *Hub) InRoom(roomID int64, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.members[roomID][connID]
	return ok
}

// BroadcastRoom delivers the event exactly once to every connection
// currently joined to the room, including the sender's own connection.
func (h *Hub) BroadcastRoom(roomID int64, e Event) {
	h.mu.RLock()
	targets := make([]Outbound, 0, len(h.members[roomID]))
	for connID := range h.members[roomID] {
		if out, ok := h.conns[connID]; ok {
			targets = append(targets, out)
		}
	}
	h.mu.RUnlock()

	for _, out := range targets {
		out.Send(e)
	}
}

// BroadcastAll delivers the event to every registered connection,
// authenticated or not.
func (h *Hub) BroadcastAll(e Event) {
	h.mu.RLock()
	targets := make([]Outbound, 0, len(h.conns))
	for _, out := range h.conns {
		targets = append(targets, out)
	}
	h.mu.RUnlock()

	for _, out := range targets {
		out.Send(e)
	}
}

// ConnectedNicknames returns the set of identities with at least one live
// connection. The push dispatcher uses it as its skip set.
func (h *Hub) ConnectedNicknames() map[string]struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]struct{}, len(h.nicknames))
	for _, nickname := range h.nicknames {
		out[nickname] = struct{}{}
	}
	return out
}

// Shutdown drops all connection state. Called once during process shutdown,
// after the HTTP server has stopped accepting connections.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info().Int("connections", len(h.conns)).Msg("hub shutting down")

	h.conns = make(map[string]Outbound)
	h.nicknames = make(map[string]string)
	h.members = make(map[int64]map[string]struct{})
}
