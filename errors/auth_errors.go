// api/errors/auth_errors.go
package errors

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMFARequired         = errors.New("mfa verification required")
	ErrInvalidOTP          = errors.New("invalid or expired code")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionRevoked      = errors.New("session revoked")
	ErrWeakPassword        = errors.New("password does not meet strength requirements")
	ErrPasskeyChallenge    = errors.New("invalid or expired passkey challenge")
	ErrRecoveryCodeInvalid = errors.New("invalid recovery code")
	ErrRecoveryCodeUsed    = errors.New("recovery code already used")
)
