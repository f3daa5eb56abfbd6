package room

import (
	"encoding/json"
	"strings"
)

// ContentKind discriminates the message content variants.
type ContentKind int

const (
	// KindText is a legacy plain-text body with no metadata.
	KindText ContentKind = iota

	// KindRich is a structured body: text plus author metadata.
	KindRich

	// KindSticker is a sticker reference plus author metadata.
	KindSticker
)

// MaxContentBytes is the maximum allowed size of an encoded content payload.
const MaxContentBytes = 5000

// StickerPlaceholder is the plain-text rendering of sticker content, used
// for push notification bodies.
const StickerPlaceholder = "(sticker)"

// Meta is the author metadata embedded in structured content. The avatar
// field is written by the server at append time and rewritten on history
// load; the client-supplied value survives only when the registry is empty.
type Meta struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`

	// TimestampOverride is an optional author-supplied display time,
	// passed through untouched.
	TimestampOverride string `json:"timestampOverride,omitempty"`
}

// Content is the tagged variant behind a message's wire payload.
type Content struct {
	Kind    ContentKind
	Text    string
	Sticker string
	Meta    Meta
}

// structuredContent is the wire shape of rich and sticker content.
type structuredContent struct {
	Text    string `json:"text,omitempty"`
	Sticker string `json:"sticker,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// ParseContent decodes a wire content string into its tagged variant.
//
// The wire format is a best-effort JSON object: a "sticker" key selects the
// sticker variant, a "text" key the rich variant; anything that does not
// parse as such an object is legacy plain text.
func ParseContent(raw string) Content {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Content{Kind: KindText, Text: raw}
	}

	var sc structuredContent
	if err := json.Unmarshal([]byte(trimmed), &sc); err != nil {
		return Content{Kind: KindText, Text: raw}
	}

	c := Content{Text: sc.Text, Sticker: sc.Sticker}
	if sc.Meta != nil {
		c.Meta = *sc.Meta
	}

	switch {
	case sc.Sticker != "":
		c.Kind = KindSticker
	case sc.Text != "":
		c.Kind = KindRich
	default:
		return Content{Kind: KindText, Text: raw}
	}

	return c
}

// Encode returns the canonical wire string for the content: the raw text for
// the plain variant, a JSON object otherwise.
func (c Content) Encode() string {
	if c.Kind == KindText {
		return c.Text
	}

	sc := structuredContent{
		Text:    c.Text,
		Sticker: c.Sticker,
	}
	if c.Meta != (Meta{}) {
		m := c.Meta
		sc.Meta = &m
	}

	b, err := json.Marshal(sc)
	if err != nil {
		return c.Text
	}
	return string(b)
}

// RenderText returns the plain-text rendering used for push notification
// bodies: the text body where one exists, a placeholder for stickers.
func (c Content) RenderText() string {
	switch c.Kind {
	case KindSticker:
		return StickerPlaceholder
	default:
		return c.Text
	}
}

// Stamp applies the server-authoritative author identity to the content.
// A non-empty avatar overwrites any client-supplied value; plain text with a
// registered avatar is promoted to the rich variant so the snapshot is
// carried in metadata. An empty avatar leaves the client-supplied value as a
// best-effort fallback.
func (c *Content) Stamp(nickname, avatar string) {
	if c.Kind == KindText {
		if avatar == "" {
			return
		}
		c.Kind = KindRich
	}

	c.Meta.Nickname = nickname
	if avatar != "" {
		c.Meta.Avatar = avatar
	}
}
