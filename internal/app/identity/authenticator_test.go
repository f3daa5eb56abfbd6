package identity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagechat/internal/app/identity"
	"stagechat/internal/app/store/memory"
	"stagechat/internal/pkg/errs"
)

/*
TestAuthenticate_AutoProvision verifies that the first login for an unseen
nickname creates the identity and succeeds, and that subsequent logins are
checked against the credential recorded then.
*/
func TestAuthenticate_AutoProvision(t *testing.T) {
	ctx := context.Background()
	auth := identity.NewAuthenticator(memory.NewIdentityStore())

	id, customErr := auth.Authenticate(ctx, "alice", "s3cret")
	require.Nil(t, customErr)
	assert.Equal(t, "alice", id.Nickname)

	// Same credential logs in again.
	id, customErr = auth.Authenticate(ctx, "alice", "s3cret")
	require.Nil(t, customErr)
	assert.Equal(t, "alice", id.Nickname)

	// A different credential is rejected, not re-provisioned.
	_, customErr = auth.Authenticate(ctx, "alice", "wrong")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrCredentialMismatch, customErr.Code)
}

/*
TestAuthenticate_Validation covers nickname and credential bounds.
*/
func TestAuthenticate_Validation(t *testing.T) {
	ctx := context.Background()
	auth := identity.NewAuthenticator(memory.NewIdentityStore())

	tests := []struct {
		name       string
		nickname   string
		credential string
		wantCode   int
	}{
		{"empty_nickname", "", "pw", errs.ErrNicknameInvalid},
		{"oversized_nickname", strings.Repeat("a", identity.MaxNicknameLen+1), "pw", errs.ErrNicknameInvalid},
		{"oversized_credential", "alice", strings.Repeat("p", identity.MaxCredentialLen+1), errs.ErrCredentialMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, customErr := auth.Authenticate(ctx, tt.nickname, tt.credential)
			require.NotNil(t, customErr)
			assert.Equal(t, tt.wantCode, customErr.Code)
		})
	}

	t.Run("empty_credential_allowed", func(t *testing.T) {
		_, customErr := auth.Authenticate(ctx, "nopass", "")
		assert.Nil(t, customErr)
	})
}

// raceStore simulates losing the first-login race: the first Create reports
// the nickname as taken after a competing writer has landed.
type raceStore struct {
	*memory.IdentityStore
	raced bool
}

func (s *raceStore) Create(ctx context.Context, id identity.Identity) error {
	if !s.raced {
		s.raced = true

		winner := id
		winner.Credential = "winner-pw"
		if err := s.IdentityStore.Create(ctx, winner); err != nil {
			return err
		}
		return identity.ErrNicknameTaken
	}
	return s.IdentityStore.Create(ctx, id)
}

/*
TestAuthenticate_ProvisionRace verifies that a login losing the concurrent
first-login race falls back to verifying against the winner's credential.
*/
func TestAuthenticate_ProvisionRace(t *testing.T) {
	ctx := context.Background()

	t.Run("loser_with_matching_credential_logs_in", func(t *testing.T) {
		store := &raceStore{IdentityStore: memory.NewIdentityStore()}
		auth := identity.NewAuthenticator(store)

		id, customErr := auth.Authenticate(ctx, "alice", "winner-pw")
		require.Nil(t, customErr)
		assert.Equal(t, "alice", id.Nickname)
		assert.True(t, store.raced)
	})

	t.Run("loser_with_other_credential_is_rejected", func(t *testing.T) {
		store := &raceStore{IdentityStore: memory.NewIdentityStore()}
		auth := identity.NewAuthenticator(store)

		_, customErr := auth.Authenticate(ctx, "alice", "loser-pw")
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrCredentialMismatch, customErr.Code)
	})
}
