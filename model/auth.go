// api/model/auth.go
package model

// SignInResult is the outcome of a credential check. When the account has
// MFA enrolled no session exists yet; the challenge token ties the later
// code verification back to this sign-in.
type SignInResult struct {
	MFARequired    bool     `json:"mfa_required"`
	ChallengeToken string   `json:"challenge_token,omitempty"`
	Channels       []string `json:"channels,omitempty"`
	Token          string   `json:"token,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
	User           *User    `json:"user,omitempty"`
}
