/*
Package room contains the room and message models and the narrow store
interfaces the chat core consumes.

Rooms are globally visible named channels; messages are immutable once
appended, ordered by the backing log, and removable but not editable.
*/
package room

import (
	"context"
	"errors"
	"time"
)

// Room is a named, globally visible channel to which messages are addressed.
// Rooms are created explicitly and never deleted or renamed.
type Room struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Message is one unit of room content. The id and timestamp are assigned by
// the backing log at insert time; the id is monotonic insofar as the log
// guarantees it. Content carries the wire-encoded payload (see Content).
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store errors returned by implementations.
var (
	// ErrNotFound indicates the referenced room does not exist.
	ErrNotFound = errors.New("room: not found")

	// ErrMessageNotFound indicates the referenced message does not exist.
	ErrMessageNotFound = errors.New("room: message not found")
)

// MaxTitleLen bounds room title length in bytes.
const MaxTitleLen = 100

// Directory maps room identifiers to titles. Backed externally; the core
// holds no lock over it.
type Directory interface {
	// Create registers a new room with the given title.
	Create(ctx context.Context, title string) (Room, error)

	// List returns all rooms. No ordering guarantee is required.
	List(ctx context.Context) ([]Room, error)

	// Get returns the room by id or ErrNotFound.
	Get(ctx context.Context, id int64) (Room, error)
}

// MessageLog is the append-only per-room ordered message store with
// soft-delete capability.
type MessageLog interface {
	// Append inserts a message authored by username into roomID and
	// returns it with a server-assigned id and timestamp. Returns
	// ErrNotFound when roomID names no existing room.
	Append(ctx context.Context, roomID int64, username string, content string) (Message, error)

	// History returns all messages of roomID oldest first.
	History(ctx context.Context, roomID int64) ([]Message, error)

	// Remove deletes the message permanently and returns it (the caller
	// needs the room reference for fan-out scoping). Returns
	// ErrMessageNotFound when no such message exists.
	Remove(ctx context.Context, messageID int64) (Message, error)
}
