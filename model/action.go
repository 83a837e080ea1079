// api/model/action.go
package model

// ActionKind tags one of the closed set of sensitive operations that must
// run through the guarded action flow.
type ActionKind string

const (
	ActionLock               ActionKind = "LOCK"
	ActionUnlock             ActionKind = "UNLOCK"
	ActionResetPassword      ActionKind = "RESET_PASSWORD"
	ActionResetMFA           ActionKind = "RESET_MFA"
	ActionForceSignout       ActionKind = "FORCE_SIGNOUT"
	ActionRotateSecret       ActionKind = "ROTATE_SECRET"
	ActionRedeemRecoveryCode ActionKind = "REDEEM_RECOVERY_CODE"
)

// Valid reports whether k belongs to the closed kind set.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionLock, ActionUnlock, ActionResetPassword, ActionResetMFA,
		ActionForceSignout, ActionRotateSecret, ActionRedeemRecoveryCode:
		return true
	}
	return false
}

// MinReasonLength is the shortest acceptable justification for a guarded
// action.
const MinReasonLength = 8

// ActionRequest describes one pending sensitive action. It is owned by a
// single flow instance and discarded when the flow closes.
type ActionRequest struct {
	Kind         ActionKind `json:"kind"`
	TargetID     string     `json:"target_id"`
	Reason       string     `json:"reason"`
	NotifyTarget bool       `json:"notify_target"`

	// Code carries the submitted recovery code for REDEEM_RECOVERY_CODE;
	// empty for every other kind.
	Code string `json:"code,omitempty"`
}

// Re-authentication modes.
const (
	ReAuthModePassword = "password"
	ReAuthModeMFA      = "mfa"
)

// MFA delivery channels.
const (
	ChannelAuthenticator = "authenticator"
	ChannelSMS           = "sms"
	ChannelWhatsApp      = "whatsapp"
	ChannelEmail         = "email"
)

// ValidChannel reports whether ch is a known MFA channel.
func ValidChannel(ch string) bool {
	switch ch {
	case ChannelAuthenticator, ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

// ReAuthProof is the transient credential supplied to unlock a guarded
// action. The secret lives only in memory for the single verification call
// and must be wiped afterwards, pass or fail.
type ReAuthProof struct {
	Mode    string `json:"mode"`              // "password" or "mfa"
	Channel string `json:"channel,omitempty"` // MFA channel, required for mode "mfa"
	Secret  string `json:"secret"`
}

// Clear wipes the secret in place.
func (p *ReAuthProof) Clear() {
	p.Secret = ""
}

// String never exposes the secret, so a proof that ends up in a log line or
// error message stays redacted.
func (p ReAuthProof) String() string {
	return "ReAuthProof{mode:" + p.Mode + " channel:" + p.Channel + " secret:<redacted>}"
}

// ActionResult is the outcome of an applied action.
type ActionResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`

	// SideEffect is a one-time-revealed secret (temporary password, rotated
	// client secret). It is surfaced at most once and never retrievable
	// again; callers must not retain it.
	SideEffect string `json:"side_effect,omitempty"`

	// RevokedCount reports how many sessions a FORCE_SIGNOUT terminated.
	RevokedCount int `json:"revoked_count,omitempty"`
}
