// api/flow/gate_test.go
package flow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/flow"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

type fakeUserSource struct {
	users map[string]*model.User
}

func (s *fakeUserSource) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, accounts_errors.ErrUserNotFound
	}
	return user, nil
}

type fakeCodeStore struct {
	codes map[string]string // userID:channel -> code
}

func (s *fakeCodeStore) key(userID, channel string) string {
	return userID + ":" + channel
}

func (s *fakeCodeStore) Get(ctx context.Context, userID, channel string) (string, error) {
	return s.codes[s.key(userID, channel)], nil
}

func (s *fakeCodeStore) Consume(ctx context.Context, userID, channel string) error {
	delete(s.codes, s.key(userID, channel))
	return nil
}

func TestGatePasswordMode(t *testing.T) {
	hash, err := util.HashPassword("correct-horse-battery")
	require.NoError(t, err)

	users := &fakeUserSource{users: map[string]*model.User{
		"op-1": {ID: "op-1", PasswordHash: hash},
		"op-2": {ID: "op-2"}, // passkey-only account, no password set
	}}
	gate := flow.NewCredentialGate(users, &fakeCodeStore{codes: map[string]string{}})
	ctx := context.Background()

	err = gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModePassword, Secret: "correct-horse-battery"})
	assert.NoError(t, err)

	err = gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModePassword, Secret: "wrong-password-here"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)

	err = gate.Verify(ctx, "op-2", model.ReAuthProof{Mode: model.ReAuthModePassword, Secret: ""})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)

	err = gate.Verify(ctx, "ghost", model.ReAuthProof{Mode: model.ReAuthModePassword, Secret: "correct-horse-battery"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)
}

func TestGateMFAMode(t *testing.T) {
	users := &fakeUserSource{users: map[string]*model.User{"op-1": {ID: "op-1"}}}
	codes := &fakeCodeStore{codes: map[string]string{"op-1:sms": "482913"}}
	gate := flow.NewCredentialGate(users, codes)
	ctx := context.Background()

	err := gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModeMFA, Channel: model.ChannelSMS, Secret: "000000"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)

	// A failed attempt leaves the code in place for a retry.
	err = gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModeMFA, Channel: model.ChannelSMS, Secret: "482913"})
	assert.NoError(t, err)

	// A successful attempt consumes the code.
	err = gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModeMFA, Channel: model.ChannelSMS, Secret: "482913"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)
}

func TestGateRejectsUnknownModeAndChannel(t *testing.T) {
	users := &fakeUserSource{users: map[string]*model.User{"op-1": {ID: "op-1"}}}
	codes := &fakeCodeStore{codes: map[string]string{"op-1:carrier-pigeon": "482913"}}
	gate := flow.NewCredentialGate(users, codes)
	ctx := context.Background()

	err := gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: "biometric", Secret: "whatever"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)

	err = gate.Verify(ctx, "op-1", model.ReAuthProof{Mode: model.ReAuthModeMFA, Channel: "carrier-pigeon", Secret: "482913"})
	assert.ErrorIs(t, err, accounts_errors.ErrReAuthFailed)
}
