// api/model/session.go
package model

import "time"

// Session is an authenticated browser/device session. Revoked sessions are
// kept for the audit trail; the auth middleware rejects their tokens.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Device    string    `json:"device,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Current   bool      `json:"current"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecoveryCode is one single-use MFA fallback code. Only the bcrypt hash
// of the code is stored; the plaintext is shown once at generation time.
type RecoveryCode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Hash      string    `json:"-"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	UsedAt    time.Time `json:"used_at,omitempty"`
}

// Passkey holds one registered WebAuthn credential. The attestation payload
// is treated as an opaque blob; ceremony validation happens in the browser
// platform layer.
type Passkey struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Label       string    `json:"label,omitempty"`
	Attestation []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
