/*
Package profile defines the avatar registry: the mapping from a nickname to
its current avatar reference (a hosted image URL or a data URL).

The registry is an injected interface with explicit lifecycle rather than a
module-level map; only the latest value per nickname is visible.
*/
package profile

import "context"

// MaxImageRefBytes bounds a stored avatar reference. Data-URL avatars from
// the socket surface are capped here; hosted avatars are short URLs.
const MaxImageRefBytes = 1 << 20 // 1 MB

// Registry maps nicknames to their current avatar reference.
type Registry interface {
	// Get returns the avatar reference for nickname, or "" when none is
	// registered.
	Get(ctx context.Context, nickname string) (string, error)

	// Set stores the avatar reference for nickname, replacing any
	// previous value.
	Set(ctx context.Context, nickname string, image string) error

	// SetAll merges a batch of nickname to avatar entries, replacing
	// existing values.
	SetAll(ctx context.Context, profiles map[string]string) error
}
