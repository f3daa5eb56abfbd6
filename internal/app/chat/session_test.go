package chat_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagechat/internal/app/chat"
	"stagechat/internal/app/identity"
	"stagechat/internal/app/push"
	"stagechat/internal/app/room"
	"stagechat/internal/app/store/memory"
	"stagechat/internal/pkg/errs"
)

// fakeSender records push deliveries instead of calling a push service.
type fakeSender struct {
	mu       sync.Mutex
	payloads []push.Notification
}

func (f *fakeSender) Send(ctx context.Context, sub push.Subscription, payload []byte) error {
	var n push.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, n)
	return nil
}

// fixture wires a hub and session dependencies over in-memory stores.
type fixture struct {
	hub    *chat.Hub
	deps   *chat.Deps
	store  *memory.ChatStore
	sender *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chatStore := memory.NewChatStore()
	subs := memory.NewSubscriptionStore()
	sender := &fakeSender{}

	return &fixture{
		hub:   chat.NewHub(),
		store: chatStore,
		deps: &chat.Deps{
			Auth:          identity.NewAuthenticator(memory.NewIdentityStore()),
			Rooms:         chatStore,
			Messages:      chatStore,
			Profiles:      memory.NewProfileRegistry(),
			Subscriptions: subs,
			Dispatcher:    push.NewDispatcher(subs, sender),
		},
		sender: sender,
	}
}

// connect opens a recorded session on the fixture's hub.
func (f *fixture) connect(t *testing.T, connID string) (*chat.Session, *recorder) {
	t.Helper()

	out := &recorder{}
	return chat.NewSession(connID, f.hub, f.deps, out), out
}

// event builds an inbound envelope with a marshaled payload.
func event(t *testing.T, name string, payload any) chat.InboundEvent {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return chat.InboundEvent{Name: name, Data: data}
}

// login binds the session to the nickname and drops the setup events.
func login(t *testing.T, s *chat.Session, out *recorder, nickname string) {
	t.Helper()

	s.Handle(context.Background(), event(t, chat.EvtLogin, chat.LoginPayload{
		Username: nickname,
		Password: "pw-" + nickname,
	}))

	require.Len(t, out.named(chat.EvtLoginSuccess), 1, "login should succeed")
	out.reset()
}

/*
TestSession_Login covers the authenticate transition: success with avatar
and room list, credential rejection, and the rejection of a second login on
an already bound connection.
*/
func TestSession_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success_delivers_avatar_and_room_list", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.deps.Profiles.Set(ctx, "alice", "https://cdn/a.png"))

		_, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		s, out := f.connect(t, "c1")
		s.Handle(ctx, event(t, chat.EvtLogin, chat.LoginPayload{Username: "alice", Password: "pw"}))

		success := out.named(chat.EvtLoginSuccess)
		require.Len(t, success, 1)
		assert.Equal(t, chat.LoginSuccessPayload{Username: "alice", Avatar: "https://cdn/a.png"}, success[0].Data)

		lists := out.named(chat.EvtRoomList)
		require.Len(t, lists, 1)
		rooms, ok := lists[0].Data.([]room.Room)
		require.True(t, ok)
		require.Len(t, rooms, 1)
		assert.Equal(t, "general", rooms[0].Title)
	})

	t.Run("wrong_credential_fails", func(t *testing.T) {
		f := newFixture(t)

		s1, out1 := f.connect(t, "c1")
		login(t, s1, out1, "alice")

		s2, out2 := f.connect(t, "c2")
		s2.Handle(ctx, event(t, chat.EvtLogin, chat.LoginPayload{Username: "alice", Password: "other"}))

		assert.Empty(t, out2.named(chat.EvtLoginSuccess))
		assert.Len(t, out2.named(chat.EvtLoginFail), 1)
	})

	t.Run("second_login_rejected", func(t *testing.T) {
		f := newFixture(t)

		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")

		s.Handle(ctx, event(t, chat.EvtLogin, chat.LoginPayload{Username: "bob", Password: "pw"}))

		assert.Len(t, out.named(chat.EvtLoginFail), 1)
		assert.Empty(t, out.named(chat.EvtLoginSuccess))

		nickname, _ := f.hub.Nickname("c1")
		assert.Equal(t, "alice", nickname)
	})
}

/*
TestSession_CreateRoom verifies that room creation is announced to every
connection, including ones that never join, and that titles are validated.
*/
func TestSession_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("announced_to_all_connections", func(t *testing.T) {
		f := newFixture(t)

		creator, creatorOut := f.connect(t, "c1")
		login(t, creator, creatorOut, "alice")

		_, bystanderOut := f.connect(t, "c2")

		creator.Handle(ctx, event(t, chat.EvtCreateRoom, "general"))

		for _, out := range []*recorder{creatorOut, bystanderOut} {
			created := out.named(chat.EvtRoomCreated)
			require.Len(t, created, 1)

			rm, ok := created[0].Data.(room.Room)
			require.True(t, ok)
			assert.Equal(t, "general", rm.Title)
			assert.NotZero(t, rm.ID)
		}
	})

	t.Run("invalid_titles_rejected", func(t *testing.T) {
		f := newFixture(t)
		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")

		for _, title := range []string{"", strings.Repeat("x", room.MaxTitleLen+1)} {
			out.reset()
			s.Handle(ctx, event(t, chat.EvtCreateRoom, title))

			failures := out.named(chat.EvtError)
			require.Len(t, failures, 1)
			assert.Equal(t, errs.ErrRoomTitleInvalid, failures[0].Data.(chat.ErrorPayload).Code)
			assert.Empty(t, out.named(chat.EvtRoomCreated))
		}
	})

	t.Run("anonymous_create_dropped", func(t *testing.T) {
		f := newFixture(t)
		s, out := f.connect(t, "c1")

		s.Handle(ctx, event(t, chat.EvtCreateRoom, "general"))

		assert.Empty(t, out.events)
	})
}

/*
TestSession_JoinRoom covers membership, history delivery ordered oldest
first, and the unknown-room failure.
*/
func TestSession_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers_metadata_and_history", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)
		_, err = f.store.Append(ctx, rm.ID, "alice", "first")
		require.NoError(t, err)
		_, err = f.store.Append(ctx, rm.ID, "alice", "second")
		require.NoError(t, err)

		s, out := f.connect(t, "c1")
		login(t, s, out, "bob")

		s.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))

		joined := out.named(chat.EvtJoinedRoom)
		require.Len(t, joined, 1)
		assert.Equal(t, room.Room{ID: rm.ID, Title: "general"}, joined[0].Data)

		loads := out.named(chat.EvtLoadMessages)
		require.Len(t, loads, 1)
		history := loads[0].Data.([]room.Message)
		require.Len(t, history, 2)
		assert.Equal(t, "first", history[0].Content)
		assert.Equal(t, "second", history[1].Content)

		assert.True(t, f.hub.InRoom(rm.ID, "c1"))
	})

	t.Run("room_id_accepted_as_string", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		s, out := f.connect(t, "c1")
		login(t, s, out, "bob")

		s.Handle(ctx, event(t, chat.EvtJoinRoom, "1"))

		assert.Len(t, out.named(chat.EvtJoinedRoom), 1)
		assert.True(t, f.hub.InRoom(rm.ID, "c1"))
	})

	t.Run("unknown_room_fails", func(t *testing.T) {
		f := newFixture(t)
		s, out := f.connect(t, "c1")
		login(t, s, out, "bob")

		s.Handle(ctx, event(t, chat.EvtJoinRoom, int64(404)))

		failures := out.named(chat.EvtError)
		require.Len(t, failures, 1)
		assert.Equal(t, errs.ErrRoomNotFound, failures[0].Data.(chat.ErrorPayload).Code)
		assert.Empty(t, out.named(chat.EvtJoinedRoom))
	})

	t.Run("history_carries_latest_avatar", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		alice, aliceOut := f.connect(t, "alice-conn")
		login(t, alice, aliceOut, "alice")
		alice.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		alice.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{RoomID: rm.ID, Content: "hello"}))

		// The avatar registered after the send must win on history load.
		require.NoError(t, f.deps.Profiles.Set(ctx, "alice", "https://cdn/new.png"))

		s, out := f.connect(t, "c2")
		login(t, s, out, "bob")
		s.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))

		loads := out.named(chat.EvtLoadMessages)
		require.Len(t, loads, 1)
		history := loads[0].Data.([]room.Message)
		require.Len(t, history, 1)

		content := room.ParseContent(history[0].Content)
		assert.Equal(t, "https://cdn/new.png", content.Meta.Avatar)
		assert.Equal(t, "hello", content.Text)
	})
}

/*
TestSession_SendMessage covers the full fan-out property: every member of
the room, including the sender, sees the message exactly once, outsiders
see nothing, and the message lands in history.
*/
func TestSession_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("fans_out_once_to_members_and_persists", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		alice, aliceOut := f.connect(t, "alice-conn")
		login(t, alice, aliceOut, "alice")
		alice.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		aliceOut.reset()

		bob, bobOut := f.connect(t, "bob-conn")
		login(t, bob, bobOut, "bob")
		bob.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		bobOut.reset()

		carol, carolOut := f.connect(t, "carol-conn")
		login(t, carol, carolOut, "carol")

		alice.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{RoomID: rm.ID, Content: "hi"}))

		for name, out := range map[string]*recorder{"sender": aliceOut, "member": bobOut} {
			delivered := out.named(chat.EvtNewMessage)
			require.Len(t, delivered, 1, name)

			msg := delivered[0].Data.(room.Message)
			assert.Equal(t, "alice", msg.Username)
			assert.Equal(t, rm.ID, msg.RoomID)
			assert.Equal(t, "hi", room.ParseContent(msg.Content).RenderText())
		}

		assert.Empty(t, carolOut.named(chat.EvtNewMessage))

		history, err := f.store.History(ctx, rm.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
	})

	t.Run("avatar_injected_server_side", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)
		require.NoError(t, f.deps.Profiles.Set(ctx, "alice", "https://cdn/real.png"))

		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")
		s.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		out.reset()

		s.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{
			RoomID:  rm.ID,
			Content: `{"text":"hi","meta":{"nickname":"alice","avatar":"https://forged/fake.png"}}`,
		}))

		delivered := out.named(chat.EvtNewMessage)
		require.Len(t, delivered, 1)

		content := room.ParseContent(delivered[0].Data.(room.Message).Content)
		assert.Equal(t, "https://cdn/real.png", content.Meta.Avatar)
	})

	t.Run("anonymous_send_dropped", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		s, out := f.connect(t, "c1")
		s.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{RoomID: rm.ID, Content: "hi"}))

		assert.Empty(t, out.events)

		history, err := f.store.History(ctx, rm.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("oversized_content_rejected", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)

		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")
		s.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		out.reset()

		s.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{
			RoomID:  rm.ID,
			Content: strings.Repeat("x", room.MaxContentBytes+1),
		}))

		failures := out.named(chat.EvtError)
		require.Len(t, failures, 1)
		assert.Equal(t, errs.ErrMessageContentTooLong, failures[0].Data.(chat.ErrorPayload).Code)
	})

	t.Run("unknown_room_fails", func(t *testing.T) {
		f := newFixture(t)

		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")

		s.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{RoomID: 404, Content: "hi"}))

		failures := out.named(chat.EvtError)
		require.Len(t, failures, 1)
		assert.Equal(t, errs.ErrRoomNotFound, failures[0].Data.(chat.ErrorPayload).Code)
	})
}

/*
TestSession_DeleteMessage verifies permanent removal with deletion fan-out
scoped to the message's room.
*/
func TestSession_DeleteMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("removes_and_notifies_room", func(t *testing.T) {
		f := newFixture(t)

		rm, err := f.store.Create(ctx, "general")
		require.NoError(t, err)
		other, err := f.store.Create(ctx, "other")
		require.NoError(t, err)

		msg, err := f.store.Append(ctx, rm.ID, "alice", "hi")
		require.NoError(t, err)

		member, memberOut := f.connect(t, "c1")
		login(t, member, memberOut, "alice")
		member.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
		memberOut.reset()

		outsider, outsiderOut := f.connect(t, "c2")
		login(t, outsider, outsiderOut, "bob")
		outsider.Handle(ctx, event(t, chat.EvtJoinRoom, other.ID))
		outsiderOut.reset()

		member.Handle(ctx, event(t, chat.EvtDeleteMessage, chat.DeleteMessagePayload{RoomID: rm.ID, MessageID: msg.ID}))

		deleted := memberOut.named(chat.EvtMessageDeleted)
		require.Len(t, deleted, 1)
		assert.Equal(t, msg.ID, deleted[0].Data)

		assert.Empty(t, outsiderOut.named(chat.EvtMessageDeleted))

		history, err := f.store.History(ctx, rm.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("unknown_message_fails", func(t *testing.T) {
		f := newFixture(t)

		s, out := f.connect(t, "c1")
		login(t, s, out, "alice")

		s.Handle(ctx, event(t, chat.EvtDeleteMessage, chat.DeleteMessagePayload{MessageID: 404}))

		failures := out.named(chat.EvtError)
		require.Len(t, failures, 1)
		assert.Equal(t, errs.ErrMessageNotFound, failures[0].Data.(chat.ErrorPayload).Code)
	})
}

/*
TestSession_Profiles covers avatar registration with its global broadcast
and the bulk restore path.
*/
func TestSession_Profiles(t *testing.T) {
	ctx := context.Background()

	t.Run("register_broadcasts_globally", func(t *testing.T) {
		f := newFixture(t)

		s, out := f.connect(t, "c1")
		_, bystanderOut := f.connect(t, "c2")

		s.Handle(ctx, event(t, chat.EvtRegisterAvatar, chat.RegisterAvatarPayload{
			Nickname: "alice",
			Image:    "https://cdn/a.png",
		}))

		for _, rec := range []*recorder{out, bystanderOut} {
			updates := rec.named(chat.EvtProfileUpdated)
			require.Len(t, updates, 1)
			assert.Equal(t, chat.ProfileUpdatedPayload{Nickname: "alice", Image: "https://cdn/a.png"}, updates[0].Data)
		}

		avatar, err := f.deps.Profiles.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/a.png", avatar)
	})

	t.Run("restore_merges_valid_entries", func(t *testing.T) {
		f := newFixture(t)
		s, _ := f.connect(t, "c1")

		s.Handle(ctx, event(t, chat.EvtRestoreProfiles, map[string]string{
			"alice": "https://cdn/a.png",
			"":      "https://cdn/anon.png",
			"bob":   "",
		}))

		avatar, err := f.deps.Profiles.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/a.png", avatar)

		avatar, err = f.deps.Profiles.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, avatar)
	})
}

/*
TestSession_PushDelivery is the offline notification scenario: an offline
subscriber gets exactly one notification titled with the sender's nickname,
while connected identities and the sender are skipped.
*/
func TestSession_PushDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rm, err := f.store.Create(ctx, "general")
	require.NoError(t, err)

	// Bob subscribes, then disconnects.
	bob, bobOut := f.connect(t, "bob-conn")
	login(t, bob, bobOut, "bob")
	bob.Handle(ctx, event(t, chat.EvtUpdateSubscription, push.Subscription{Endpoint: "https://push/bob"}))
	bob.Close()

	// Carol subscribes and stays connected.
	carol, carolOut := f.connect(t, "carol-conn")
	login(t, carol, carolOut, "carol")
	carol.Handle(ctx, event(t, chat.EvtUpdateSubscription, push.Subscription{Endpoint: "https://push/carol"}))

	// Alice subscribes and sends.
	alice, aliceOut := f.connect(t, "alice-conn")
	login(t, alice, aliceOut, "alice")
	alice.Handle(ctx, event(t, chat.EvtUpdateSubscription, push.Subscription{Endpoint: "https://push/alice"}))
	alice.Handle(ctx, event(t, chat.EvtJoinRoom, rm.ID))
	alice.Handle(ctx, event(t, chat.EvtSendMessage, chat.SendMessagePayload{RoomID: rm.ID, Content: "hi"}))

	require.Len(t, f.sender.payloads, 1)
	assert.Equal(t, "alice", f.sender.payloads[0].Title)
	assert.Equal(t, "hi", f.sender.payloads[0].Body)
	assert.Contains(t, f.sender.payloads[0].URL, "room=")
}

/*
TestSession_AnonymousSubscription verifies that subscription updates from
unbound connections are dropped.
*/
func TestSession_AnonymousSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, _ := f.connect(t, "c1")
	s.Handle(ctx, event(t, chat.EvtUpdateSubscription, push.Subscription{Endpoint: "https://push/anon"}))

	subs, err := f.deps.Subscriptions.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
