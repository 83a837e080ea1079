// api/controller/auth_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/service"
	"github.com/evzone/myaccounts/api/util"
)

type AuthController struct {
	authService service.IAuthService
}

func NewAuthController(authService service.IAuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// RegisterPublicRoutes registers the unauthenticated sign-in endpoints
func (ac *AuthController) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/signin", ac.SignIn)
		auth.POST("/otp/send", ac.SendOTP)
		auth.POST("/otp/verify", ac.VerifyOTP)
	}
}

// RegisterProtectedRoutes registers the self-service security endpoints
func (ac *AuthController) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/auth/signout", ac.SignOut)

	me := r.Group("/me")
	{
		me.GET("/sessions", ac.ListSessions)
		me.DELETE("/sessions/:id", ac.RevokeSession)
		me.POST("/sessions/revoke-others", ac.RevokeOtherSessions)
		me.POST("/password", ac.ChangePassword)
		me.POST("/mfa", ac.EnrollMFA)
		me.POST("/passkeys/begin", ac.BeginPasskeyRegistration)
		me.POST("/passkeys/finish", ac.FinishPasskeyRegistration)
		me.POST("/recovery-codes", ac.RegenerateRecoveryCodes)
	}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Device   string `json:"device"`
}

// SignIn endpoint
func (ac *AuthController) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid sign-in data", err)
		return
	}

	client := model.Session{
		Device:    req.Device,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := ac.authService.SignIn(c, req.Email, req.Password, client)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrInvalidCredentials):
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password", err)
		case errors.Is(err, accounts_errors.ErrUserLocked):
			util.RespondWithError(c, http.StatusForbidden, "Account is locked", err)
		case errors.Is(err, accounts_errors.ErrTooManyRequests):
			util.RespondWithError(c, http.StatusTooManyRequests, "Too many sign-in attempts", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to sign in", accounts_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

type sendOTPRequest struct {
	ChallengeToken string `json:"challenge_token" binding:"required"`
	Channel        string `json:"channel" binding:"required"`
}

// SendOTP endpoint
func (ac *AuthController) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	if err := ac.authService.SendOTP(c, req.ChallengeToken, req.Channel); err != nil {
		if errors.Is(err, accounts_errors.ErrInvalidOTP) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid or expired challenge", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to send code", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

type verifyOTPRequest struct {
	ChallengeToken string `json:"challenge_token" binding:"required"`
	Channel        string `json:"channel" binding:"required"`
	Code           string `json:"code" binding:"required"`
	Device         string `json:"device"`
}

// VerifyOTP endpoint
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	client := model.Session{
		Device:    req.Device,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := ac.authService.VerifyOTP(c, req.ChallengeToken, req.Channel, req.Code, client)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrInvalidOTP):
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired code", err)
		case errors.Is(err, accounts_errors.ErrUserLocked):
			util.RespondWithError(c, http.StatusForbidden, "Account is locked", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to verify code", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// SignOut endpoint
func (ac *AuthController) SignOut(c *gin.Context) {
	sessionID, err := util.GetSessionIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := ac.authService.SignOut(c, sessionID); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to sign out", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListSessions endpoint
func (ac *AuthController) ListSessions(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	sessionID, _ := util.GetSessionIDFromContext(c)

	sessions, err := ac.authService.ListSessions(c, userID, sessionID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// RevokeSession endpoint
func (ac *AuthController) RevokeSession(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := ac.authService.RevokeSession(c, userID, c.Param("id")); err != nil {
		if errors.Is(err, accounts_errors.ErrSessionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Session not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke session", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeOtherSessions endpoint
func (ac *AuthController) RevokeOtherSessions(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	sessionID, err := util.GetSessionIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	revoked, err := ac.authService.RevokeOtherSessions(c, userID, sessionID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke sessions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked_count": revoked})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	SignOutOthers   bool   `json:"sign_out_others"`
}

// ChangePassword endpoint
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	sessionID, _ := util.GetSessionIDFromContext(c)

	revoked, err := ac.authService.ChangePassword(c, userID, req.CurrentPassword, req.NewPassword, req.SignOutOthers, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrInvalidCredentials):
			util.RespondWithError(c, http.StatusUnauthorized, "Current password is incorrect", err)
		case errors.Is(err, accounts_errors.ErrWeakPassword):
			util.RespondWithError(c, http.StatusBadRequest, "New password does not meet the policy", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to change password", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked_count": revoked})
}

type enrollMFARequest struct {
	Channels []string `json:"channels" binding:"required"`
}

// EnrollMFA endpoint
func (ac *AuthController) EnrollMFA(c *gin.Context) {
	var req enrollMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := ac.authService.EnrollMFA(c, userID, req.Channels); err != nil {
		if errors.Is(err, accounts_errors.ErrInvalidAction) {
			util.RespondWithError(c, http.StatusBadRequest, "Unknown MFA channel", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to enroll MFA", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// BeginPasskeyRegistration endpoint
func (ac *AuthController) BeginPasskeyRegistration(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	challenge, err := ac.authService.BeginPasskeyRegistration(c, userID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to start passkey registration", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}

type finishPasskeyRequest struct {
	Label       string `json:"label"`
	Challenge   string `json:"challenge" binding:"required"`
	Attestation []byte `json:"attestation" binding:"required"`
}

// FinishPasskeyRegistration endpoint
func (ac *AuthController) FinishPasskeyRegistration(c *gin.Context) {
	var req finishPasskeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	passkeyID, err := ac.authService.FinishPasskeyRegistration(c, userID, req.Label, req.Challenge, req.Attestation)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrPasskeyChallenge) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid or expired challenge", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to register passkey", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"passkey_id": passkeyID})
}

// RegenerateRecoveryCodes endpoint. The response is the only time the
// plaintext codes exist outside the user's screen.
func (ac *AuthController) RegenerateRecoveryCodes(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	codes, err := ac.authService.RegenerateRecoveryCodes(c, userID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to regenerate recovery codes", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"codes": codes})
}
