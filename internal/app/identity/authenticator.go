package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"stagechat/internal/pkg/errs"
	"stagechat/internal/pkg/logx"
)

const (
	// MaxNicknameLen bounds nickname length in bytes.
	MaxNicknameLen = 32

	// MaxCredentialLen bounds credential length in bytes.
	MaxCredentialLen = 128
)

// Authenticator implements the login policy over a Store.
type Authenticator struct {
	store  Store
	logger zerolog.Logger
}

// NewAuthenticator constructs an Authenticator backed by the given store.
func NewAuthenticator(store Store) *Authenticator {
	return &Authenticator{
		store:  store,
		logger: logx.With("authenticator"),
	}
}

// Authenticate resolves nickname/credential to an Identity.
//
// An unseen nickname is auto-provisioned with the presented credential and
// the login succeeds. An existing nickname succeeds only when the credential
// matches the stored one exactly. Two concurrent first logins race on the
// store's unique constraint; the loser is re-read and treated as a normal
// login against the winner's credential.
func (a *Authenticator) Authenticate(ctx context.Context, nickname, credential string) (Identity, *errs.CustomError) {
	if nickname == "" || len(nickname) > MaxNicknameLen {
		return Identity{}, errs.NewError(errs.ErrNicknameInvalid)
	}
	if len(credential) > MaxCredentialLen {
		return Identity{}, errs.NewError(errs.ErrCredentialMismatch)
	}

	id, err := a.store.GetByNickname(ctx, nickname)

	switch {
	case err == nil:
		return a.verify(id, credential)

	case errors.Is(err, ErrNotFound):
		return a.provision(ctx, nickname, credential)

	default:
		a.logger.Error().Err(err).Str("nickname", nickname).Msg("identity lookup failed")
		return Identity{}, errs.NewError(errs.ErrBackingStore)
	}
}

func (a *Authenticator) verify(id Identity, credential string) (Identity, *errs.CustomError) {
	if subtle.ConstantTimeCompare([]byte(id.Credential), []byte(credential)) != 1 {
		a.logger.Warn().Str("nickname", id.Nickname).Msg("credential mismatch")
		return Identity{}, errs.NewError(errs.ErrCredentialMismatch)
	}
	return id, nil
}

func (a *Authenticator) provision(ctx context.Context, nickname, credential string) (Identity, *errs.CustomError) {
	id := Identity{
		Nickname:   nickname,
		Credential: credential,
		CreatedAt:  time.Now(),
	}

	err := a.store.Create(ctx, id)
	if err == nil {
		a.logger.Info().Str("nickname", nickname).Msg("identity auto-provisioned")
		return id, nil
	}

	if errors.Is(err, ErrNicknameTaken) {
		// Lost the first-login race. The winner's credential is now
		// authoritative; fall back to a normal verify against it.
		existing, getErr := a.store.GetByNickname(ctx, nickname)
		if getErr != nil {
			a.logger.Error().Err(getErr).Str("nickname", nickname).Msg("re-read after create race failed")
			return Identity{}, errs.NewError(errs.ErrBackingStore)
		}
		return a.verify(existing, credential)
	}

	a.logger.Error().Err(err).Str("nickname", nickname).Msg("identity create failed")
	return Identity{}, errs.NewError(errs.ErrBackingStore)
}
