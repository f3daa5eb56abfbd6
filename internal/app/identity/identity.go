/*
Package identity contains the registered-user model and the login policy.

An Identity is a nickname with a fixed credential, independent of any live
connection. Identities are auto-provisioned on first login: an unseen
nickname is created with the presented credential, and every later login
must present the same credential verbatim.
*/
package identity

import (
	"context"
	"errors"
	"time"
)

// Identity represents a registered nickname and its credential.
type Identity struct {
	// Nickname is the unique display name.
	Nickname string `json:"nickname"`

	// Credential is the opaque secret fixed at creation and compared
	// verbatim on subsequent logins. Never serialized to clients.
	Credential string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// Store errors returned by implementations.
var (
	// ErrNotFound indicates no identity exists for the nickname.
	ErrNotFound = errors.New("identity: not found")

	// ErrNicknameTaken indicates a concurrent create won the unique
	// constraint on the nickname.
	ErrNicknameTaken = errors.New("identity: nickname taken")
)

// Store is the narrow persistence interface the login policy consumes.
type Store interface {
	// GetByNickname returns the identity for nickname or ErrNotFound.
	GetByNickname(ctx context.Context, nickname string) (Identity, error)

	// Create inserts a new identity. Returns ErrNicknameTaken when the
	// nickname already exists.
	Create(ctx context.Context, id Identity) error
}
