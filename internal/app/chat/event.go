/*
Package chat contains the real-time core: the hub that tracks connections,
identity bindings, and room membership, and the per-connection session
protocol that coordinates login, room traffic, and message fan-out.

This file defines the wire event envelope and the payload shapes of the
protocol surface.
*/
package chat

import (
	"encoding/json"
	"strconv"

	"stagechat/internal/app/push"
)

// Inbound event names.
const (
	EvtLogin              = "login"
	EvtCreateRoom         = "create_room"
	EvtJoinRoom           = "join_room"
	EvtLeaveRoom          = "leave_room"
	EvtSendMessage        = "send_message"
	EvtDeleteMessage      = "delete_message"
	EvtUpdateSubscription = "update_subscription"
	EvtRegisterAvatar     = "register_avatar"
	EvtRestoreProfiles    = "restore_profiles"
)

// Outbound event names.
const (
	EvtLoginSuccess   = "login_success"
	EvtLoginFail      = "login_fail"
	EvtRoomCreated    = "room_created"
	EvtRoomList       = "room_list"
	EvtJoinedRoom     = "joined_room"
	EvtLoadMessages   = "load_messages"
	EvtNewMessage     = "new_message"
	EvtMessageDeleted = "message_deleted"
	EvtProfileUpdated = "profile_updated"
	EvtError          = "error"
)

// Event is the outbound wire envelope: a named event with a data payload.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// InboundEvent is the inbound wire envelope; the payload stays raw until the
// handler for the event name decodes it.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoginPayload carries the credentials presented on login.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginSuccessPayload confirms a login with the current registered avatar.
type LoginSuccessPayload struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// SendMessagePayload carries an outgoing message; content is the wire
// content string (see room.ParseContent).
type SendMessagePayload struct {
	RoomID  int64  `json:"roomId"`
	Content string `json:"content"`
}

// DeleteMessagePayload identifies a message to remove.
type DeleteMessagePayload struct {
	RoomID    int64 `json:"roomId"`
	MessageID int64 `json:"messageId"`
}

// RegisterAvatarPayload registers an avatar reference for a nickname.
type RegisterAvatarPayload struct {
	Nickname string `json:"nickname"`
	Image    string `json:"image"`
}

// ProfileUpdatedPayload is broadcast globally when an avatar changes.
type ProfileUpdatedPayload struct {
	Nickname string `json:"nickname"`
	Image    string `json:"image"`
}

// SubscriptionPayload is the Web Push delivery address sent by the client.
type SubscriptionPayload = push.Subscription

// ErrorPayload is the generic failure event payload.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// decodeID accepts a room or message identifier sent either as a JSON
// number or as a string, the two forms observed from clients.
func decodeID(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, perr := strconv.ParseInt(s, 10, 64); perr == nil {
			return parsed, true
		}
	}

	return 0, false
}
