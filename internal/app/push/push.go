/*
Package push implements the notification dispatcher: out-of-band Web Push
delivery to subscribers who are not actively receiving live fan-out.

Each identity holds at most one delivery address (last write wins). The
address table is an injected store with process lifetime; it is never
persisted, a known durability gap carried over from the source system.
*/
package push

import (
	"context"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Subscription is the Web Push delivery address registered by a client.
type Subscription = webpush.Subscription

// SubscriptionStore holds the delivery address per nickname.
type SubscriptionStore interface {
	// Set registers or replaces the delivery address for nickname.
	Set(ctx context.Context, nickname string, sub Subscription) error

	// Remove drops the delivery address for nickname. Removing an
	// unknown nickname is a no-op.
	Remove(ctx context.Context, nickname string) error

	// All returns the current nickname to address table.
	All(ctx context.Context) (map[string]Subscription, error)
}

// Notification is the payload delivered to the push service. The URL is a
// deep link back into the room the message was sent to.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Sender performs a single push delivery. Split out from the dispatcher so
// fan-out policy is testable without the Web Push protocol.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
}
