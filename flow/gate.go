// api/flow/gate.go
package flow

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/db"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// Gate verifies a re-authentication proof for the operator confirming a
// guarded action. Every failure maps to the same generic error so the
// response does not reveal which part of the proof was wrong.
type Gate interface {
	Verify(ctx context.Context, userID string, proof model.ReAuthProof) error
}

// UserSource is the slice of the user store the gate needs.
type UserSource interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// CodeStore holds pending one-time codes per user and channel. Consume
// removes a code after a successful verification so it cannot be replayed.
type CodeStore interface {
	Get(ctx context.Context, userID, channel string) (string, error)
	Consume(ctx context.Context, userID, channel string) error
}

// RedisCodeStore backs CodeStore with the shared redis client.
type RedisCodeStore struct{}

func (RedisCodeStore) Get(ctx context.Context, userID, channel string) (string, error) {
	return db.GetOneTimeCode(ctx, userID, channel)
}

func (RedisCodeStore) Consume(ctx context.Context, userID, channel string) error {
	return db.DeleteOneTimeCode(ctx, userID, channel)
}

type CredentialGate struct {
	Users UserSource
	Codes CodeStore
}

var _ Gate = &CredentialGate{}

func NewCredentialGate(users UserSource, codes CodeStore) *CredentialGate {
	return &CredentialGate{Users: users, Codes: codes}
}

func (g *CredentialGate) Verify(ctx context.Context, userID string, proof model.ReAuthProof) error {
	defer proof.Clear()

	switch proof.Mode {
	case model.ReAuthModePassword:
		return g.verifyPassword(ctx, userID, proof.Secret)
	case model.ReAuthModeMFA:
		return g.verifyCode(ctx, userID, proof.Channel, proof.Secret)
	default:
		logger.Warn("Re-auth attempt with unknown mode",
			zap.String("userID", userID),
			zap.String("mode", proof.Mode))
		return accounts_errors.ErrReAuthFailed
	}
}

func (g *CredentialGate) verifyPassword(ctx context.Context, userID, secret string) error {
	user, err := g.Users.GetUser(ctx, userID)
	if err != nil {
		logger.Warn("Re-auth password check failed to load user",
			zap.String("userID", userID), zap.Error(err))
		return accounts_errors.ErrReAuthFailed
	}
	if user.PasswordHash == "" || !util.CheckPassword(user.PasswordHash, secret) {
		logger.Warn("Re-auth password mismatch", zap.String("userID", userID))
		return accounts_errors.ErrReAuthFailed
	}
	return nil
}

func (g *CredentialGate) verifyCode(ctx context.Context, userID, channel, secret string) error {
	if !model.ValidChannel(channel) {
		return accounts_errors.ErrReAuthFailed
	}

	stored, err := g.Codes.Get(ctx, userID, channel)
	if err != nil {
		logger.Error("Re-auth code lookup failed",
			zap.String("userID", userID), zap.Error(err))
		return accounts_errors.ErrReAuthFailed
	}
	if stored == "" {
		return accounts_errors.ErrReAuthFailed
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		logger.Warn("Re-auth code mismatch",
			zap.String("userID", userID),
			zap.String("channel", channel))
		return accounts_errors.ErrReAuthFailed
	}

	// The code is burned even though verification already passed; a
	// second confirm must deliver a fresh code.
	if err := g.Codes.Consume(ctx, userID, channel); err != nil {
		logger.Error("Failed to consume re-auth code",
			zap.String("userID", userID), zap.Error(err))
		return accounts_errors.ErrReAuthFailed
	}

	return nil
}
