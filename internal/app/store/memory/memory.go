/*
Package memory provides the in-memory implementations of the chat store
interfaces: identities, the room directory, the message log, the avatar
registry, and the push subscription table.

All state lives for the process lifetime only and resets on restart. The
maps are mutex-guarded so the store set doubles as the default backend for
development and as the fixture backend for the protocol tests.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stagechat/internal/app/identity"
	"stagechat/internal/app/push"
	"stagechat/internal/app/room"
)

// IdentityStore keeps identities keyed by nickname.
type IdentityStore struct {
	mu  sync.RWMutex
	ids map[string]identity.Identity
}

// NewIdentityStore returns an empty in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{ids: make(map[string]identity.Identity)}
}

// GetByNickname implements identity.Store.
func (s *IdentityStore) GetByNickname(ctx context.Context, nickname string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ids[nickname]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return id, nil
}

// Create implements identity.Store. Creation is serialized under the mutex,
// so of two concurrent first logins exactly one provisions.
func (s *IdentityStore) Create(ctx context.Context, id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id.Nickname]; ok {
		return identity.ErrNicknameTaken
	}
	s.ids[id.Nickname] = id
	return nil
}

// ChatStore implements room.Directory and room.MessageLog over shared maps,
// so the log can validate room references without a second collaborator.
type ChatStore struct {
	mu         sync.RWMutex
	rooms      map[int64]room.Room
	messages   map[int64][]room.Message // room id -> ordered messages
	nextRoomID int64
	nextMsgID  int64
}

// NewChatStore returns an empty in-memory directory and message log.
func NewChatStore() *ChatStore {
	return &ChatStore{
		rooms:    make(map[int64]room.Room),
		messages: make(map[int64][]room.Message),
	}
}

// Create implements room.Directory.
func (s *ChatStore) Create(ctx context.Context, title string) (room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRoomID++
	r := room.Room{
		ID:        s.nextRoomID,
		Title:     title,
		CreatedAt: time.Now(),
	}
	s.rooms[r.ID] = r
	return r, nil
}

// List implements room.Directory. Rooms come back in creation order.
func (s *ChatStore) List(ctx context.Context) ([]room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

// Get implements room.Directory.
func (s *ChatStore) Get(ctx context.Context, id int64) (room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	return r, nil
}

// Append implements room.MessageLog. The id sequence is global and
// monotonic; the append order under the lock is the fan-out order.
func (s *ChatStore) Append(ctx context.Context, roomID int64, username string, content string) (room.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return room.Message{}, room.ErrNotFound
	}

	s.nextMsgID++
	m := room.Message{
		ID:        s.nextMsgID,
		RoomID:    roomID,
		Username:  username,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.messages[roomID] = append(s.messages[roomID], m)
	return m, nil
}

// History implements room.MessageLog, oldest first.
func (s *ChatStore) History(ctx context.Context, roomID int64) ([]room.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return nil, room.ErrNotFound
	}

	msgs := s.messages[roomID]
	out := make([]room.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Remove implements room.MessageLog.
func (s *ChatStore) Remove(ctx context.Context, messageID int64) (room.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, msgs := range s.messages {
		for i, m := range msgs {
			if m.ID == messageID {
				s.messages[roomID] = append(msgs[:i:i], msgs[i+1:]...)
				return m, nil
			}
		}
	}
	return room.Message{}, room.ErrMessageNotFound
}

// ProfileRegistry keeps avatar references keyed by nickname.
type ProfileRegistry struct {
	mu      sync.RWMutex
	avatars map[string]string
}

// NewProfileRegistry returns an empty in-memory avatar registry.
func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{avatars: make(map[string]string)}
}

// Get implements profile.Registry.
func (p *ProfileRegistry) Get(ctx context.Context, nickname string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.avatars[nickname], nil
}

// Set implements profile.Registry.
func (p *ProfileRegistry) Set(ctx context.Context, nickname string, image string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.avatars[nickname] = image
	return nil
}

// SetAll implements profile.Registry.
func (p *ProfileRegistry) SetAll(ctx context.Context, profiles map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for nickname, image := range profiles {
		p.avatars[nickname] = image
	}
	return nil
}

// SubscriptionStore keeps push delivery addresses keyed by nickname.
type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]push.Subscription
}

// NewSubscriptionStore returns an empty in-memory subscription table.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subs: make(map[string]push.Subscription)}
}

// Set implements push.SubscriptionStore; last write wins.
func (s *SubscriptionStore) Set(ctx context.Context, nickname string, sub push.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[nickname] = sub
	return nil
}

// Remove implements push.SubscriptionStore.
func (s *SubscriptionStore) Remove(ctx context.Context, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, nickname)
	return nil
}

// All implements push.SubscriptionStore.
func (s *SubscriptionStore) All(ctx context.Context) (map[string]push.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]push.Subscription, len(s.subs))
	for nickname, sub := range s.subs {
		out[nickname] = sub
	}
	return out, nil
}
