package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"stagechat/internal/app/identity"
	"stagechat/internal/app/profile"
	"stagechat/internal/app/push"
	"stagechat/internal/app/room"
	"stagechat/internal/pkg/errs"
	"stagechat/internal/pkg/logx"
)

// Deps bundles the collaborators the session protocol orchestrates. All
// stores are externally synchronized; the session holds no lock over them.
type Deps struct {
	Auth          *identity.Authenticator
	Rooms         room.Directory
	Messages      room.MessageLog
	Profiles      profile.Registry
	Subscriptions push.SubscriptionStore

	// Dispatcher is nil when push delivery is not configured.
	Dispatcher *push.Dispatcher
}

// Session is the connection-scoped protocol state machine: Anonymous until
// a successful login binds an identity, then a member of any number of
// rooms until disconnect. There is no resume: a reconnect starts a fresh
// Session with no binding and no memberships.
//
// Each inbound event runs to completion on the connection's read loop, so
// a slow external call delays only this connection's event stream.
type Session struct {
	// ID is the hub key for this connection.
	ID string

	hub    *Hub
	deps   *Deps
	out    Outbound
	logger zerolog.Logger
}

// NewSession constructs a Session and registers its connection with the hub.
func NewSession(id string, hub *Hub, deps *Deps, out Outbound) *Session {
	s := &Session{
		ID:     id,
		hub:    hub,
		deps:   deps,
		out:    out,
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}

	hub.Register(id, out)
	return s
}

// Close releases the connection's hub state. Memberships die with the
// connection; the identity itself survives.
func (s *Session) Close() {
	s.hub.Unregister(s.ID)
}

// Handle dispatches one inbound event. Errors from external collaborators
// are converted to user-facing failure events here and never propagate.
func (s *Session) Handle(ctx context.Context, e InboundEvent) {
	switch e.Name {
	case EvtLogin:
		s.handleLogin(ctx, e.Data)
	case EvtCreateRoom:
		s.handleCreateRoom(ctx, e.Data)
	case EvtJoinRoom:
		s.handleJoinRoom(ctx, e.Data)
	case EvtLeaveRoom:
		s.handleLeaveRoom(e.Data)
	case EvtSendMessage:
		s.handleSendMessage(ctx, e.Data)
	case EvtDeleteMessage:
		s.handleDeleteMessage(ctx, e.Data)
	case EvtUpdateSubscription:
		s.handleUpdateSubscription(ctx, e.Data)
	case EvtRegisterAvatar:
		s.handleRegisterAvatar(ctx, e.Data)
	case EvtRestoreProfiles:
		s.handleRestoreProfiles(ctx, e.Data)
	default:
		s.logger.Warn().Str("event", e.Name).Msg("unsupported event")
	}
}

func (s *Session) sendError(customErr *errs.CustomError) {
	s.out.Send(Event{Name: EvtError, Data: ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	}})
}

// handleLogin runs the authenticate transition. Success binds the identity
// and delivers the current avatar plus the full room directory listing.
func (s *Session) handleLogin(ctx context.Context, data json.RawMessage) {
	var payload LoginPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("invalid login payload")
		s.out.Send(Event{Name: EvtLoginFail, Data: errs.NewError(errs.ErrInvalidParams).Message})
		return
	}

	if _, bound := s.hub.Nickname(s.ID); bound {
		s.out.Send(Event{Name: EvtLoginFail, Data: errs.NewError(errs.ErrAlreadyAuthenticated).Message})
		return
	}

	id, authErr := s.deps.Auth.Authenticate(ctx, payload.Username, payload.Password)
	if authErr != nil {
		s.out.Send(Event{Name: EvtLoginFail, Data: authErr.Message})
		return
	}

	if bindErr := s.hub.Bind(s.ID, id.Nickname); bindErr != nil {
		s.out.Send(Event{Name: EvtLoginFail, Data: bindErr.Message})
		return
	}

	s.logger.Info().Str("nickname", id.Nickname).Msg("identity bound")

	avatar, err := s.deps.Profiles.Get(ctx, id.Nickname)
	if err != nil {
		s.logger.Error().Err(err).Str("nickname", id.Nickname).Msg("avatar lookup failed on login")
		avatar = ""
	}

	s.out.Send(Event{Name: EvtLoginSuccess, Data: LoginSuccessPayload{
		Username: id.Nickname,
		Avatar:   avatar,
	}})

	rooms, err := s.deps.Rooms.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("room list failed after login")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.out.Send(Event{Name: EvtRoomList, Data: rooms})
}

// handleCreateRoom creates a room and broadcasts it to every connection,
// not just the creator; rooms are globally visible as soon as created.
func (s *Session) handleCreateRoom(ctx context.Context, data json.RawMessage) {
	if _, bound := s.hub.Nickname(s.ID); !bound {
		s.logger.Debug().Msg("create_room from anonymous connection dropped")
		return
	}

	var title string
	if err := json.Unmarshal(data, &title); err != nil {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if title == "" || len(title) > room.MaxTitleLen {
		s.sendError(errs.NewError(errs.ErrRoomTitleInvalid))
		return
	}

	created, err := s.deps.Rooms.Create(ctx, title)
	if err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("room create failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.hub.BroadcastAll(Event{Name: EvtRoomCreated, Data: room.Room{
		ID:    created.ID,
		Title: created.Title,
	}})
}

// handleJoinRoom adds membership and delivers room metadata plus the full
// history, oldest first, to this connection only. Each message's embedded
// avatar is re-resolved to the author's latest registered avatar.
func (s *Session) handleJoinRoom(ctx context.Context, data json.RawMessage) {
	if _, bound := s.hub.Nickname(s.ID); !bound {
		s.logger.Debug().Msg("join_room from anonymous connection dropped")
		return
	}

	roomID, ok := decodeID(data)
	if !ok {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	rm, err := s.deps.Rooms.Get(ctx, roomID)
	if errors.Is(err, room.ErrNotFound) {
		s.sendError(errs.NewError(errs.ErrRoomNotFound))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("room_id", roomID).Msg("room lookup failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.hub.Join(rm.ID, s.ID)

	s.out.Send(Event{Name: EvtJoinedRoom, Data: room.Room{ID: rm.ID, Title: rm.Title}})

	history, err := s.deps.Messages.History(ctx, rm.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("room_id", rm.ID).Msg("history load failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.out.Send(Event{Name: EvtLoadMessages, Data: s.resolveHistoryAvatars(ctx, history)})
}

// resolveHistoryAvatars rewrites each message's embedded avatar metadata to
// the author's current registered avatar, one registry lookup per distinct
// author. Messages without a registered avatar keep their snapshot.
func (s *Session) resolveHistoryAvatars(ctx context.Context, history []room.Message) []room.Message {
	avatars := make(map[string]string)

	for i := range history {
		author := history[i].Username

		avatar, seen := avatars[author]
		if !seen {
			resolved, err := s.deps.Profiles.Get(ctx, author)
			if err != nil {
				s.logger.Error().Err(err).Str("nickname", author).Msg("avatar re-resolution failed")
				resolved = ""
			}
			avatar = resolved
			avatars[author] = avatar
		}

		if avatar == "" {
			continue
		}

		content := room.ParseContent(history[i].Content)
		content.Stamp(author, avatar)
		history[i].Content = content.Encode()
	}

	return history
}

// handleLeaveRoom removes membership. Leaving a room the connection never
// joined is a no-op.
func (s *Session) handleLeaveRoom(data json.RawMessage) {
	roomID, ok := decodeID(data)
	if !ok {
		return
	}

	s.hub.Leave(roomID, s.ID)
}

// handleSendMessage appends a message and fans it out to every connection
// joined to the room, including the sender, then dispatches push
// notifications to offline subscribers. Anonymous sends are silently
// dropped; no client state should allow them.
func (s *Session) handleSendMessage(ctx context.Context, data json.RawMessage) {
	nickname, bound := s.hub.Nickname(s.ID)
	if !bound {
		s.logger.Debug().Msg("send_message from anonymous connection dropped")
		return
	}

	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if len(payload.Content) > room.MaxContentBytes {
		s.sendError(errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	content := room.ParseContent(payload.Content)

	// Server-side avatar resolution is authoritative; the client-supplied
	// value survives only when the registry has nothing for the author.
	avatar, err := s.deps.Profiles.Get(ctx, nickname)
	if err != nil {
		s.logger.Error().Err(err).Str("nickname", nickname).Msg("avatar lookup failed on send")
		avatar = ""
	}
	content.Stamp(nickname, avatar)

	msg, err := s.deps.Messages.Append(ctx, payload.RoomID, nickname, content.Encode())
	if errors.Is(err, room.ErrNotFound) {
		s.sendError(errs.NewError(errs.ErrRoomNotFound))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("room_id", payload.RoomID).Msg("message append failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.hub.BroadcastRoom(msg.RoomID, Event{Name: EvtNewMessage, Data: msg})

	if s.deps.Dispatcher != nil {
		s.deps.Dispatcher.Notify(ctx, nickname, msg.RoomID, content.RenderText(), s.hub.ConnectedNicknames())
	}
}

// handleDeleteMessage removes a message permanently and broadcasts the
// deletion to the connections currently joined to that message's room.
// There is no ownership check; any connected party may delete any message.
func (s *Session) handleDeleteMessage(ctx context.Context, data json.RawMessage) {
	var payload DeleteMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	removed, err := s.deps.Messages.Remove(ctx, payload.MessageID)
	if errors.Is(err, room.ErrMessageNotFound) {
		s.sendError(errs.NewError(errs.ErrMessageNotFound))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("message_id", payload.MessageID).Msg("message remove failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	// Scope by the removed message's actual room, not the client's claim.
	s.hub.BroadcastRoom(removed.RoomID, Event{Name: EvtMessageDeleted, Data: removed.ID})
}

// handleUpdateSubscription records the delivery address for the bound
// identity, last write wins. Anonymous updates are dropped.
func (s *Session) handleUpdateSubscription(ctx context.Context, data json.RawMessage) {
	nickname, bound := s.hub.Nickname(s.ID)
	if !bound {
		s.logger.Debug().Msg("update_subscription from anonymous connection dropped")
		return
	}

	var sub SubscriptionPayload
	if err := json.Unmarshal(data, &sub); err != nil || sub.Endpoint == "" {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if err := s.deps.Subscriptions.Set(ctx, nickname, sub); err != nil {
		s.logger.Error().Err(err).Str("nickname", nickname).Msg("subscription store failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
	}
}

// handleRegisterAvatar stores an avatar reference for a nickname and
// broadcasts the change globally. Open to any connection, as in the source
// system where the registry doubles as an admin surface.
func (s *Session) handleRegisterAvatar(ctx context.Context, data json.RawMessage) {
	var payload RegisterAvatarPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if payload.Nickname == "" || payload.Image == "" {
		s.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if len(payload.Image) > profile.MaxImageRefBytes {
		s.sendError(errs.NewError(errs.ErrFileSizeTooLarge))
		return
	}

	if err := s.deps.Profiles.Set(ctx, payload.Nickname, payload.Image); err != nil {
		s.logger.Error().Err(err).Str("nickname", payload.Nickname).Msg("avatar registration failed")
		s.sendError(errs.NewError(errs.ErrBackingStore))
		return
	}

	s.hub.BroadcastAll(Event{Name: EvtProfileUpdated, Data: ProfileUpdatedPayload{
		Nickname: payload.Nickname,
		Image:    payload.Image,
	}})
}

// handleRestoreProfiles bulk-merges client-cached avatar references into
// the registry, used after a registry reset.
func (s *Session) handleRestoreProfiles(ctx context.Context, data json.RawMessage) {
	var profiles map[string]string
	if err := json.Unmarshal(data, &profiles); err != nil || len(profiles) == 0 {
		return
	}

	for nickname, image := range profiles {
		if nickname == "" || image == "" || len(image) > profile.MaxImageRefBytes {
			delete(profiles, nickname)
		}
	}

	if len(profiles) == 0 {
		return
	}

	if err := s.deps.Profiles.SetAll(ctx, profiles); err != nil {
		s.logger.Error().Err(err).Int("count", len(profiles)).Msg("profile restore failed")
		return
	}

	s.logger.Info().Int("count", len(profiles)).Msg("profiles restored from client")
}
