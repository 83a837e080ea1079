// api/flow/executor_test.go
package flow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/flow"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

type fakeUserStore struct {
	users         map[string]*model.User
	statusCalls   int
	lastStatus    string
	lastReason    string
	passwordHash  string
	clearedMFA    bool
	clearChannels []string
}

func (s *fakeUserStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, accounts_errors.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) SetUserStatus(ctx context.Context, userID, status, reason string) (string, error) {
	user, ok := s.users[userID]
	if !ok {
		return "", accounts_errors.ErrUserNotFound
	}
	s.statusCalls++
	s.lastStatus = status
	s.lastReason = reason
	previous := user.Status
	user.Status = status
	return previous, nil
}

func (s *fakeUserStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	if _, ok := s.users[userID]; !ok {
		return accounts_errors.ErrUserNotFound
	}
	s.passwordHash = hash
	return nil
}

func (s *fakeUserStore) SetMFAEnrollment(ctx context.Context, userID string, channels []string) error {
	if _, ok := s.users[userID]; !ok {
		return accounts_errors.ErrUserNotFound
	}
	s.clearedMFA = true
	s.clearChannels = channels
	return nil
}

type fakeSessionStore struct {
	sessions []*model.Session
	revoked  []string
}

func (s *fakeSessionStore) ListSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	var out []*model.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.Revoked {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) RevokeSession(ctx context.Context, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	return nil
}

type fakeAppStore struct {
	apps       map[string]*model.App
	secretHash string
	lastReason string
}

func (s *fakeAppStore) GetApp(ctx context.Context, appID string) (*model.App, error) {
	app, ok := s.apps[appID]
	if !ok {
		return nil, accounts_errors.ErrAppNotFound
	}
	return app, nil
}

func (s *fakeAppStore) SetSecretHash(ctx context.Context, appID, hash, reason string) error {
	if _, ok := s.apps[appID]; !ok {
		return accounts_errors.ErrAppNotFound
	}
	s.secretHash = hash
	s.lastReason = reason
	return nil
}

type fakeRecoveryStore struct {
	codes []*model.RecoveryCode
	used  []string
}

func (s *fakeRecoveryStore) ListCodes(ctx context.Context, userID string) ([]*model.RecoveryCode, error) {
	var out []*model.RecoveryCode
	for _, code := range s.codes {
		if code.UserID == userID {
			out = append(out, code)
		}
	}
	return out, nil
}

func (s *fakeRecoveryStore) MarkUsed(ctx context.Context, codeID string) error {
	for _, code := range s.codes {
		if code.ID == codeID {
			if code.Used {
				return accounts_errors.ErrRecoveryCodeUsed
			}
			code.Used = true
			s.used = append(s.used, codeID)
			return nil
		}
	}
	return accounts_errors.ErrRecoveryCodeInvalid
}

type fakeNotifier struct {
	notified []model.ActionKind
}

func (n *fakeNotifier) NotifyAccountAction(ctx context.Context, kind model.ActionKind, user model.User) error {
	n.notified = append(n.notified, kind)
	return nil
}

type fakeCache struct {
	deletedUsers []string
	deletedApps  []string
}

func (c *fakeCache) DeleteUser(ctx context.Context, userID string) error {
	c.deletedUsers = append(c.deletedUsers, userID)
	return nil
}

func (c *fakeCache) DeleteApp(ctx context.Context, appID string) error {
	c.deletedApps = append(c.deletedApps, appID)
	return nil
}

type executorFixture struct {
	users    *fakeUserStore
	sessions *fakeSessionStore
	apps     *fakeAppStore
	codes    *fakeRecoveryStore
	notifier *fakeNotifier
	cache    *fakeCache
	executor *flow.ActionExecutor
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		users: &fakeUserStore{users: map[string]*model.User{
			"user-42": {ID: "user-42", Status: model.UserStatusActive, Email: "jane@example.com"},
		}},
		sessions: &fakeSessionStore{},
		apps: &fakeAppStore{apps: map[string]*model.App{
			"app-7": {ID: "app-7", Name: "Checkout Widget"},
		}},
		codes:    &fakeRecoveryStore{},
		notifier: &fakeNotifier{},
		cache:    &fakeCache{},
	}
	f.executor = flow.NewActionExecutor(f.users, f.sessions, f.apps, f.codes, f.notifier, f.cache)
	return f
}

func TestExecuteLockAndUnlock(t *testing.T) {
	f := newExecutorFixture()
	ctx := context.Background()

	result, err := f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionLock,
		TargetID: "user-42",
		Reason:   "fraud report #8841",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, model.UserStatusLocked, f.users.lastStatus)
	assert.Equal(t, "fraud report #8841", f.users.lastReason)
	assert.Contains(t, f.cache.deletedUsers, "user-42")

	// Locking an already locked account must not write again.
	result, err = f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionLock,
		TargetID: "user-42",
		Reason:   "second lock attempt",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Message, "already")
	assert.Equal(t, 1, f.users.statusCalls)

	result, err = f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionUnlock,
		TargetID: "user-42",
		Reason:   "dispute resolved, customer verified",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, model.UserStatusActive, f.users.lastStatus)
}

func TestExecuteUnknownTarget(t *testing.T) {
	f := newExecutorFixture()

	_, err := f.executor.Execute(context.Background(), model.ActionRequest{
		Kind:     model.ActionLock,
		TargetID: "ghost",
		Reason:   "no such account anywhere",
	})
	assert.ErrorIs(t, err, accounts_errors.ErrUserNotFound)
}

func TestExecuteResetPassword(t *testing.T) {
	f := newExecutorFixture()
	f.sessions.sessions = []*model.Session{
		{ID: "sess-1", UserID: "user-42"},
		{ID: "sess-2", UserID: "user-42"},
	}

	result, err := f.executor.Execute(context.Background(), model.ActionRequest{
		Kind:     model.ActionResetPassword,
		TargetID: "user-42",
		Reason:   "user lost access to email",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)

	// The temporary password is revealed to the caller and its hash stored.
	require.NotEmpty(t, result.SideEffect)
	assert.True(t, util.CheckPassword(f.users.passwordHash, result.SideEffect))

	// Sessions authenticated with the old password are gone.
	assert.Equal(t, 2, result.RevokedCount)
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, f.sessions.revoked)
}

func TestExecuteResetMFA(t *testing.T) {
	f := newExecutorFixture()

	result, err := f.executor.Execute(context.Background(), model.ActionRequest{
		Kind:         model.ActionResetMFA,
		TargetID:     "user-42",
		Reason:       "lost authenticator device",
		NotifyTarget: true,
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, f.users.clearedMFA)
	assert.Empty(t, f.users.clearChannels)
	assert.Equal(t, []model.ActionKind{model.ActionResetMFA}, f.notifier.notified)
}

func TestExecuteForceSignout(t *testing.T) {
	f := newExecutorFixture()
	f.sessions.sessions = []*model.Session{
		{ID: "sess-1", UserID: "user-42"},
		{ID: "sess-2", UserID: "user-42"},
		{ID: "sess-3", UserID: "user-42"},
		{ID: "sess-4", UserID: "someone-else"},
	}

	result, err := f.executor.Execute(context.Background(), model.ActionRequest{
		Kind:     model.ActionForceSignout,
		TargetID: "user-42",
		Reason:   "stolen laptop reported",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, 3, result.RevokedCount)
	assert.ElementsMatch(t, []string{"sess-1", "sess-2", "sess-3"}, f.sessions.revoked)
}

func TestExecuteRotateSecret(t *testing.T) {
	f := newExecutorFixture()

	result, err := f.executor.Execute(context.Background(), model.ActionRequest{
		Kind:     model.ActionRotateSecret,
		TargetID: "app-7",
		Reason:   "secret leaked in client logs",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)

	require.NotEmpty(t, result.SideEffect)
	assert.True(t, strings.HasPrefix(result.SideEffect, "evz_"))
	assert.True(t, util.CheckPassword(f.apps.secretHash, result.SideEffect))
	assert.Equal(t, "secret leaked in client logs", f.apps.lastReason)
	assert.Contains(t, f.cache.deletedApps, "app-7")
}

func TestExecuteRedeemRecoveryCode(t *testing.T) {
	f := newExecutorFixture()
	hash, err := util.HashPassword("ABCD-2345")
	require.NoError(t, err)
	usedHash, err := util.HashPassword("EFGH-6789")
	require.NoError(t, err)
	f.codes.codes = []*model.RecoveryCode{
		{ID: "code-1", UserID: "user-42", Hash: hash},
		{ID: "code-2", UserID: "user-42", Hash: usedHash, Used: true},
	}

	ctx := context.Background()

	// The code is matched case-insensitively with the separator dropped.
	result, err := f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionRedeemRecoveryCode,
		TargetID: "user-42",
		Reason:   "phone lost, recovering via backup code",
		Code:     "abcd-2345",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, []string{"code-1"}, f.codes.used)
	assert.Contains(t, result.Message, "0 code(s) remaining")

	// A spent code cannot be redeemed again.
	_, err = f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionRedeemRecoveryCode,
		TargetID: "user-42",
		Reason:   "phone lost, recovering via backup code",
		Code:     "EFGH-6789",
	})
	assert.ErrorIs(t, err, accounts_errors.ErrRecoveryCodeInvalid)

	_, err = f.executor.Execute(ctx, model.ActionRequest{
		Kind:     model.ActionRedeemRecoveryCode,
		TargetID: "user-42",
		Reason:   "phone lost, recovering via backup code",
		Code:     "ZZZZ-9999",
	})
	assert.ErrorIs(t, err, accounts_errors.ErrRecoveryCodeInvalid)
}
