package room_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagechat/internal/app/room"
)

/*
TestParseContent checks the variant selection rules of the wire content
format: a "sticker" key selects the sticker variant, a "text" key the rich
variant, and anything else falls back to legacy plain text.
*/
func TestParseContent(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantKind    room.ContentKind
		wantText    string
		wantSticker string
	}{
		{"plain_text", "hello there", room.KindText, "hello there", ""},
		{"plain_text_with_braces_inside", "a {b} c", room.KindText, "a {b} c", ""},
		{"rich_text", `{"text":"hi","meta":{"nickname":"alice"}}`, room.KindRich, "hi", ""},
		{"sticker", `{"sticker":"cat-01","meta":{"nickname":"bob"}}`, room.KindSticker, "", "cat-01"},
		{"sticker_wins_over_text", `{"sticker":"cat-01","text":"ignored"}`, room.KindSticker, "ignored", "cat-01"},
		{"malformed_json_object", `{"text": unquoted}`, room.KindText, `{"text": unquoted}`, ""},
		{"empty_object", `{}`, room.KindText, `{}`, ""},
		{"leading_whitespace", `  {"text":"hi"}`, room.KindRich, "hi", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := room.ParseContent(tt.raw)

			assert.Equal(t, tt.wantKind, c.Kind)
			assert.Equal(t, tt.wantText, c.Text)
			assert.Equal(t, tt.wantSticker, c.Sticker)
		})
	}
}

/*
TestContentEncode verifies the canonical wire encodings: raw text for the
plain variant, a JSON object with embedded metadata otherwise.
*/
func TestContentEncode(t *testing.T) {
	t.Run("plain_round_trips_verbatim", func(t *testing.T) {
		c := room.ParseContent("just words")
		assert.Equal(t, "just words", c.Encode())
	})

	t.Run("rich_carries_meta", func(t *testing.T) {
		c := room.Content{
			Kind: room.KindRich,
			Text: "hi",
			Meta: room.Meta{Nickname: "alice", Avatar: "https://cdn/a.png"},
		}

		var decoded struct {
			Text string    `json:"text"`
			Meta room.Meta `json:"meta"`
		}
		require.NoError(t, json.Unmarshal([]byte(c.Encode()), &decoded))

		assert.Equal(t, "hi", decoded.Text)
		assert.Equal(t, "alice", decoded.Meta.Nickname)
		assert.Equal(t, "https://cdn/a.png", decoded.Meta.Avatar)
	})

	t.Run("timestamp_override_passes_through", func(t *testing.T) {
		raw := `{"text":"hi","meta":{"nickname":"alice","timestampOverride":"2024-01-01T00:00:00Z"}}`

		c := room.ParseContent(raw)
		c.Stamp("alice", "")

		reparsed := room.ParseContent(c.Encode())
		assert.Equal(t, "2024-01-01T00:00:00Z", reparsed.Meta.TimestampOverride)
	})
}

/*
TestContentStamp covers server-side author stamping: a registered avatar is
authoritative and overwrites the client value, plain text is promoted to the
rich variant to carry it, and an empty registry leaves client values alone.
*/
func TestContentStamp(t *testing.T) {
	t.Run("overwrites_client_supplied_avatar", func(t *testing.T) {
		c := room.ParseContent(`{"text":"hi","meta":{"nickname":"alice","avatar":"https://evil/fake.png"}}`)
		c.Stamp("alice", "https://cdn/real.png")

		assert.Equal(t, "https://cdn/real.png", c.Meta.Avatar)
	})

	t.Run("promotes_plain_text_when_avatar_registered", func(t *testing.T) {
		c := room.ParseContent("hello")
		c.Stamp("alice", "https://cdn/a.png")

		assert.Equal(t, room.KindRich, c.Kind)
		assert.Equal(t, "hello", c.Text)
		assert.Equal(t, "alice", c.Meta.Nickname)
		assert.Equal(t, "https://cdn/a.png", c.Meta.Avatar)
	})

	t.Run("plain_text_untouched_without_avatar", func(t *testing.T) {
		c := room.ParseContent("hello")
		c.Stamp("alice", "")

		assert.Equal(t, room.KindText, c.Kind)
		assert.Equal(t, "hello", c.Encode())
	})

	t.Run("keeps_client_avatar_when_registry_empty", func(t *testing.T) {
		c := room.ParseContent(`{"text":"hi","meta":{"avatar":"data:image/png;base64,xyz"}}`)
		c.Stamp("alice", "")

		assert.Equal(t, "data:image/png;base64,xyz", c.Meta.Avatar)
		assert.Equal(t, "alice", c.Meta.Nickname)
	})

	t.Run("sticker_keeps_kind", func(t *testing.T) {
		c := room.ParseContent(`{"sticker":"cat-01"}`)
		c.Stamp("bob", "https://cdn/b.png")

		assert.Equal(t, room.KindSticker, c.Kind)
		assert.Equal(t, "https://cdn/b.png", c.Meta.Avatar)
	})
}

/*
TestContentRenderText checks the plain-text rendering used for notification
bodies.
*/
func TestContentRenderText(t *testing.T) {
	assert.Equal(t, "hi", room.ParseContent("hi").RenderText())
	assert.Equal(t, "hi", room.ParseContent(`{"text":"hi"}`).RenderText())
	assert.Equal(t, room.StickerPlaceholder, room.ParseContent(`{"sticker":"cat-01"}`).RenderText())
}
