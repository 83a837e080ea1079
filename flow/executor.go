// api/flow/executor.go
package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

const maxConcurrentRevocations = 5

// Executor applies one confirmed action exactly once. Implementations must
// not retry on their own: RESET_PASSWORD and ROTATE_SECRET mint secrets, so
// a blind retry could mint a second secret the caller never sees.
type Executor interface {
	Execute(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error)
}

// UserStore is the slice of the user store the executor mutates.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	SetUserStatus(ctx context.Context, userID, status, reason string) (string, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
	SetMFAEnrollment(ctx context.Context, userID string, channels []string) error
}

type SessionStore interface {
	ListSessions(ctx context.Context, userID string) ([]*model.Session, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

type AppStore interface {
	GetApp(ctx context.Context, appID string) (*model.App, error)
	SetSecretHash(ctx context.Context, appID, hash, reason string) error
}

type RecoveryStore interface {
	ListCodes(ctx context.Context, userID string) ([]*model.RecoveryCode, error)
	MarkUsed(ctx context.Context, codeID string) error
}

type Notifier interface {
	NotifyAccountAction(ctx context.Context, kind model.ActionKind, user model.User) error
}

// CacheInvalidator drops cached copies of entities the executor mutated.
type CacheInvalidator interface {
	DeleteUser(ctx context.Context, userID string) error
	DeleteApp(ctx context.Context, appID string) error
}

type ActionExecutor struct {
	Users    UserStore
	Sessions SessionStore
	Apps     AppStore
	Codes    RecoveryStore
	Notifier Notifier
	Cache    CacheInvalidator
}

var _ Executor = &ActionExecutor{}

func NewActionExecutor(users UserStore, sessions SessionStore, apps AppStore, codes RecoveryStore, notifier Notifier, cache CacheInvalidator) *ActionExecutor {
	return &ActionExecutor{
		Users:    users,
		Sessions: sessions,
		Apps:     apps,
		Codes:    codes,
		Notifier: notifier,
		Cache:    cache,
	}
}

func (e *ActionExecutor) Execute(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	start := time.Now()

	var result *model.ActionResult
	var err error

	switch req.Kind {
	case model.ActionLock:
		result, err = e.setUserStatus(ctx, req, model.UserStatusLocked)
	case model.ActionUnlock:
		result, err = e.setUserStatus(ctx, req, model.UserStatusActive)
	case model.ActionResetPassword:
		result, err = e.resetPassword(ctx, req)
	case model.ActionResetMFA:
		result, err = e.resetMFA(ctx, req)
	case model.ActionForceSignout:
		result, err = e.forceSignout(ctx, req)
	case model.ActionRotateSecret:
		result, err = e.rotateSecret(ctx, req)
	case model.ActionRedeemRecoveryCode:
		result, err = e.redeemRecoveryCode(ctx, req)
	default:
		return nil, accounts_errors.ErrInvalidAction
	}

	if err != nil {
		logger.Warn("Guarded action failed",
			zap.String("kind", string(req.Kind)),
			zap.String("targetID", req.TargetID),
			zap.Error(err))
		return nil, err
	}

	logger.Info("Guarded action applied",
		zap.String("kind", string(req.Kind)),
		zap.String("targetID", req.TargetID),
		zap.Duration("duration", time.Since(start)))

	if req.NotifyTarget && req.Kind != model.ActionRotateSecret {
		if user, getErr := e.Users.GetUser(ctx, req.TargetID); getErr == nil {
			if notifyErr := e.Notifier.NotifyAccountAction(ctx, req.Kind, *user); notifyErr != nil {
				logger.Warn("Failed to notify action target", zap.Error(notifyErr))
			}
		}
	}

	return result, nil
}

// setUserStatus handles LOCK and UNLOCK. A target already in the desired
// status is left untouched and reported as a no-op.
func (e *ActionExecutor) setUserStatus(ctx context.Context, req model.ActionRequest, status string) (*model.ActionResult, error) {
	user, err := e.Users.GetUser(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return &model.ActionResult{
			OK:      true,
			Message: fmt.Sprintf("account is already %s", status),
		}, nil
	}

	if _, err := e.Users.SetUserStatus(ctx, req.TargetID, status, req.Reason); err != nil {
		return nil, err
	}
	if err := e.Cache.DeleteUser(ctx, req.TargetID); err != nil {
		logger.Warn("Failed to invalidate user cache", zap.Error(err))
	}

	return &model.ActionResult{
		OK:      true,
		Message: fmt.Sprintf("account status changed to %s", status),
	}, nil
}

func (e *ActionExecutor) resetPassword(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	if _, err := e.Users.GetUser(ctx, req.TargetID); err != nil {
		return nil, err
	}

	tempPassword, err := util.GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	if err := e.Users.SetPasswordHash(ctx, req.TargetID, hash); err != nil {
		return nil, err
	}

	// Existing sessions were authenticated with the old password.
	revoked, err := e.revokeAllSessions(ctx, req.TargetID)
	if err != nil {
		logger.Warn("Failed to revoke sessions after password reset",
			zap.String("targetID", req.TargetID), zap.Error(err))
	}

	if err := e.Cache.DeleteUser(ctx, req.TargetID); err != nil {
		logger.Warn("Failed to invalidate user cache", zap.Error(err))
	}

	return &model.ActionResult{
		OK:           true,
		Message:      "temporary password issued",
		SideEffect:   tempPassword,
		RevokedCount: revoked,
	}, nil
}

func (e *ActionExecutor) resetMFA(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	if _, err := e.Users.GetUser(ctx, req.TargetID); err != nil {
		return nil, err
	}

	if err := e.Users.SetMFAEnrollment(ctx, req.TargetID, nil); err != nil {
		return nil, err
	}
	if err := e.Cache.DeleteUser(ctx, req.TargetID); err != nil {
		logger.Warn("Failed to invalidate user cache", zap.Error(err))
	}

	return &model.ActionResult{
		OK:      true,
		Message: "mfa enrollment cleared, target must re-enroll at next sign-in",
	}, nil
}

func (e *ActionExecutor) forceSignout(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	if _, err := e.Users.GetUser(ctx, req.TargetID); err != nil {
		return nil, err
	}

	revoked, err := e.revokeAllSessions(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	return &model.ActionResult{
		OK:           true,
		Message:      fmt.Sprintf("%d session(s) terminated", revoked),
		RevokedCount: revoked,
	}, nil
}

func (e *ActionExecutor) rotateSecret(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	if _, err := e.Apps.GetApp(ctx, req.TargetID); err != nil {
		return nil, err
	}

	secret, err := util.GenerateClientSecret()
	if err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(secret)
	if err != nil {
		return nil, err
	}

	if err := e.Apps.SetSecretHash(ctx, req.TargetID, hash, req.Reason); err != nil {
		return nil, err
	}
	if err := e.Cache.DeleteApp(ctx, req.TargetID); err != nil {
		logger.Warn("Failed to invalidate app cache", zap.Error(err))
	}

	return &model.ActionResult{
		OK:         true,
		Message:    "client secret rotated, previous secret is no longer accepted",
		SideEffect: secret,
	}, nil
}

func (e *ActionExecutor) redeemRecoveryCode(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	submitted := util.NormalizeRecoveryCode(req.Code)
	if submitted == "" {
		return nil, accounts_errors.ErrRecoveryCodeInvalid
	}

	codes, err := e.Codes.ListCodes(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	remaining := 0
	var match *model.RecoveryCode
	for _, code := range codes {
		if code.Used {
			continue
		}
		remaining++
		if match == nil && util.CheckPassword(code.Hash, submitted) {
			match = code
		}
	}

	if match == nil {
		return nil, accounts_errors.ErrRecoveryCodeInvalid
	}

	if err := e.Codes.MarkUsed(ctx, match.ID); err != nil {
		return nil, err
	}

	return &model.ActionResult{
		OK:      true,
		Message: fmt.Sprintf("recovery code accepted, %d code(s) remaining", remaining-1),
	}, nil
}

// revokeAllSessions terminates every active session of the user with a
// bounded fan-out and returns how many were revoked.
func (e *ActionExecutor) revokeAllSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := e.Sessions.ListSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrentRevocations)
	for _, sess := range sessions {
		sessionID := sess.ID
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return e.Sessions.RevokeSession(ctx, sessionID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(sessions), nil
}
