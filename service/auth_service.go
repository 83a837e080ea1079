// api/service/auth_service.go
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/config"
	"github.com/evzone/myaccounts/api/dao"
	"github.com/evzone/myaccounts/api/db"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

const signInRateLimit = 10

// IAuthService defines the interface for sign-in and self-service security
// settings
type IAuthService interface {
	SignIn(ctx context.Context, email, password string, client model.Session) (*model.SignInResult, error)
	SendOTP(ctx context.Context, challengeToken, channel string) error
	VerifyOTP(ctx context.Context, challengeToken, channel, code string, client model.Session) (*model.SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error

	ListSessions(ctx context.Context, userID, currentSessionID string) ([]*model.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error)

	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, signOutOthers bool, currentSessionID string) (int, error)
	EnrollMFA(ctx context.Context, userID string, channels []string) error
	BeginPasskeyRegistration(ctx context.Context, userID string) (string, error)
	FinishPasskeyRegistration(ctx context.Context, userID, label, challenge string, attestation []byte) (string, error)
	RegenerateRecoveryCodes(ctx context.Context, userID string) ([]string, error)
}

// AuthService handles credential checks, MFA sign-in and session issuance
type AuthService struct {
	userDAO         *dao.UserDAO
	sessionDAO      *dao.SessionDAO
	recoveryDAO     *dao.RecoveryCodeDAO
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
}

var _ IAuthService = &AuthService{}

func NewAuthService(userDAO *dao.UserDAO, sessionDAO *dao.SessionDAO, recoveryDAO *dao.RecoveryCodeDAO, cacheService *util.CacheService, notificationSvc *util.NotificationService) *AuthService {
	return &AuthService{
		userDAO:         userDAO,
		sessionDAO:      sessionDAO,
		recoveryDAO:     recoveryDAO,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
	}
}

// SignIn checks the password and either issues a session or, for MFA
// enrolled accounts, parks the sign-in behind a challenge token. Unknown
// email and wrong password produce the same error.
func (s *AuthService) SignIn(ctx context.Context, email, password string, client model.Session) (*model.SignInResult, error) {
	allowed, err := db.RateLimit(ctx, "signin:"+email, signInRateLimit, time.Minute)
	if err != nil {
		logger.Error("Sign-in rate limit check failed", zap.Error(err))
	} else if !allowed {
		return nil, accounts_errors.ErrTooManyRequests
	}

	user, err := s.userDAO.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrUserNotFound) {
			return nil, accounts_errors.ErrInvalidCredentials
		}
		logger.Error("Error looking up user for sign-in", zap.Error(err))
		return nil, accounts_errors.ErrInternalServer
	}

	if user.PasswordHash == "" || !util.CheckPassword(user.PasswordHash, password) {
		logger.Warn("Sign-in password mismatch", zap.String("userID", user.ID))
		return nil, accounts_errors.ErrInvalidCredentials
	}

	if user.Locked() {
		return nil, accounts_errors.ErrUserLocked
	}

	if user.MFAEnrolled {
		token := uuid.New().String()
		if err := db.StoreMFAChallenge(ctx, token, user.ID, config.GetDuration("auth.otpTTL")); err != nil {
			logger.Error("Failed to store MFA challenge", zap.Error(err), zap.String("userID", user.ID))
			return nil, accounts_errors.ErrInternalServer
		}
		logger.Info("Sign-in pending MFA", zap.String("userID", user.ID))
		return &model.SignInResult{
			MFARequired:    true,
			ChallengeToken: token,
			Channels:       user.MFAChannels,
		}, nil
	}

	return s.issueSession(ctx, user, client)
}

// SendOTP delivers a one-time code over the chosen channel for a pending
// MFA sign-in.
func (s *AuthService) SendOTP(ctx context.Context, challengeToken, channel string) error {
	if !model.ValidChannel(channel) {
		return accounts_errors.ErrInvalidOTP
	}

	userID, err := db.PeekMFAChallenge(ctx, challengeToken)
	if err != nil {
		logger.Error("Failed to look up MFA challenge", zap.Error(err))
		return accounts_errors.ErrInternalServer
	}
	if userID == "" {
		return accounts_errors.ErrInvalidOTP
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return accounts_errors.ErrInvalidOTP
	}

	code, err := util.GenerateNumericCode(6)
	if err != nil {
		return accounts_errors.ErrInternalServer
	}
	if err := db.StoreOneTimeCode(ctx, userID, channel, code, config.GetDuration("auth.otpTTL")); err != nil {
		logger.Error("Failed to store one-time code", zap.Error(err), zap.String("userID", userID))
		return accounts_errors.ErrInternalServer
	}

	if err := s.notificationSvc.DeliverOneTimeCode(ctx, *user, channel); err != nil {
		logger.Error("Failed to deliver one-time code", zap.Error(err), zap.String("userID", userID))
		return accounts_errors.ErrInternalServer
	}

	logger.Info("One-time code sent", zap.String("userID", userID), zap.String("channel", channel))
	return nil
}

// VerifyOTP finishes an MFA sign-in. The code and the challenge are both
// consumed whether or not a session gets issued afterwards.
func (s *AuthService) VerifyOTP(ctx context.Context, challengeToken, channel, code string, client model.Session) (*model.SignInResult, error) {
	userID, err := db.PeekMFAChallenge(ctx, challengeToken)
	if err != nil {
		logger.Error("Failed to look up MFA challenge", zap.Error(err))
		return nil, accounts_errors.ErrInternalServer
	}
	if userID == "" {
		return nil, accounts_errors.ErrInvalidOTP
	}

	stored, err := db.GetOneTimeCode(ctx, userID, channel)
	if err != nil {
		logger.Error("Failed to load one-time code", zap.Error(err), zap.String("userID", userID))
		return nil, accounts_errors.ErrInternalServer
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		logger.Warn("One-time code mismatch", zap.String("userID", userID), zap.String("channel", channel))
		return nil, accounts_errors.ErrInvalidOTP
	}

	if err := db.DeleteOneTimeCode(ctx, userID, channel); err != nil {
		logger.Error("Failed to consume one-time code", zap.Error(err), zap.String("userID", userID))
	}
	if _, err := db.TakeMFAChallenge(ctx, challengeToken); err != nil {
		logger.Error("Failed to consume MFA challenge", zap.Error(err))
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return nil, accounts_errors.ErrInternalServer
	}
	if user.Locked() {
		return nil, accounts_errors.ErrUserLocked
	}

	return s.issueSession(ctx, user, client)
}

// SignOut revokes the current session.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessionDAO.RevokeSession(ctx, sessionID)
}

// ListSessions returns the user's active sessions with the current one
// flagged, so the UI can pin it to the top.
func (s *AuthService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]*model.Session, error) {
	sessions, err := s.sessionDAO.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		sess.Current = sess.ID == currentSessionID
	}
	return sessions, nil
}

// RevokeSession ends one of the user's own sessions. A session that does
// not belong to the caller reads as not found.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessionDAO.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return accounts_errors.ErrSessionNotFound
	}
	return s.sessionDAO.RevokeSession(ctx, sessionID)
}

// RevokeOtherSessions signs the user out everywhere except the device they
// are using right now.
func (s *AuthService) RevokeOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error) {
	return s.sessionDAO.RevokeAllExcept(ctx, userID, currentSessionID)
}

// ChangePassword verifies the current password, enforces the strength
// policy and optionally signs out every other session. It returns how
// many sessions were revoked.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, signOutOthers bool, currentSessionID string) (int, error) {
	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if user.PasswordHash == "" || !util.CheckPassword(user.PasswordHash, currentPassword) {
		logger.Warn("Change-password current password mismatch", zap.String("userID", userID))
		return 0, accounts_errors.ErrInvalidCredentials
	}

	if err := util.ValidatePasswordStrength(newPassword); err != nil {
		return 0, accounts_errors.ErrWeakPassword
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return 0, accounts_errors.ErrInternalServer
	}
	if err := s.userDAO.SetPasswordHash(ctx, userID, hash); err != nil {
		return 0, err
	}

	if err := s.cacheService.DeleteUser(ctx, userID); err != nil {
		logger.Warn("Failed to invalidate user cache", zap.Error(err), zap.String("userID", userID))
	}

	revoked := 0
	if signOutOthers {
		revoked, err = s.sessionDAO.RevokeAllExcept(ctx, userID, currentSessionID)
		if err != nil {
			logger.Error("Failed to revoke other sessions after password change",
				zap.Error(err), zap.String("userID", userID))
			return 0, err
		}
	}

	logger.Info("Password changed", zap.String("userID", userID), zap.Int("revoked", revoked))
	return revoked, nil
}

// EnrollMFA records the channels the user can receive codes on.
func (s *AuthService) EnrollMFA(ctx context.Context, userID string, channels []string) error {
	for _, ch := range channels {
		if !model.ValidChannel(ch) {
			return accounts_errors.ErrInvalidAction
		}
	}

	if err := s.userDAO.SetMFAEnrollment(ctx, userID, channels); err != nil {
		return err
	}
	if err := s.cacheService.DeleteUser(ctx, userID); err != nil {
		logger.Warn("Failed to invalidate user cache", zap.Error(err), zap.String("userID", userID))
	}
	return nil
}

// BeginPasskeyRegistration mints a single-use ceremony challenge.
func (s *AuthService) BeginPasskeyRegistration(ctx context.Context, userID string) (string, error) {
	challenge, err := util.GenerateChallenge()
	if err != nil {
		return "", accounts_errors.ErrInternalServer
	}
	if err := db.StorePasskeyChallenge(ctx, userID, challenge, config.GetDuration("auth.passkeyChallengeTTL")); err != nil {
		logger.Error("Failed to store passkey challenge", zap.Error(err), zap.String("userID", userID))
		return "", accounts_errors.ErrInternalServer
	}
	return challenge, nil
}

// FinishPasskeyRegistration stores the credential produced against the
// challenge issued by BeginPasskeyRegistration. The attestation payload is
// kept opaque; the browser platform validated the ceremony.
func (s *AuthService) FinishPasskeyRegistration(ctx context.Context, userID, label, challenge string, attestation []byte) (string, error) {
	issued, err := db.TakePasskeyChallenge(ctx, userID)
	if err != nil {
		logger.Error("Failed to load passkey challenge", zap.Error(err), zap.String("userID", userID))
		return "", accounts_errors.ErrInternalServer
	}
	if issued == "" || subtle.ConstantTimeCompare([]byte(issued), []byte(challenge)) != 1 {
		return "", accounts_errors.ErrPasskeyChallenge
	}

	passkeyID, err := s.userDAO.AddPasskey(ctx, model.Passkey{
		UserID:      userID,
		Label:       label,
		Attestation: attestation,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", err
	}

	logger.Info("Passkey registered", zap.String("userID", userID), zap.String("passkeyID", passkeyID))
	return passkeyID, nil
}

// RegenerateRecoveryCodes replaces the user's codes and returns the new
// plaintext set. This is the only moment the plaintext exists; afterwards
// only hashes remain.
func (s *AuthService) RegenerateRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := util.GenerateRecoveryCodes(config.GetInt("auth.recoveryCodeCount"))
	if err != nil {
		return nil, accounts_errors.ErrInternalServer
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hash, err := util.HashPassword(code)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		hashes[i] = hash
	}

	if err := s.recoveryDAO.ReplaceCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}

	return codes, nil
}

// issueSession creates the session record and signs the bearer token.
func (s *AuthService) issueSession(ctx context.Context, user *model.User, client model.Session) (*model.SignInResult, error) {
	ttl := config.GetDuration("auth.sessionTTL")

	client.UserID = user.ID
	client.ExpiresAt = time.Now().Add(ttl)

	sessionID, err := s.sessionDAO.CreateSession(ctx, client)
	if err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"sid":  sessionID,
		"role": user.Role,
		"exp":  time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(config.GetString("auth.jwtSecret")))
	if err != nil {
		logger.Error("Failed to sign session token", zap.Error(err), zap.String("userID", user.ID))
		return nil, accounts_errors.ErrInternalServer
	}

	logger.Info("Session issued", zap.String("userID", user.ID), zap.String("sessionID", sessionID))

	return &model.SignInResult{
		Token:     signed,
		SessionID: sessionID,
		User:      user,
	}, nil
}
