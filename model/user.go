// api/model/user.go
package model

import "time"

// User account statuses as surfaced in the admin console.
const (
	UserStatusActive     = "Active"
	UserStatusLocked     = "Locked"
	UserStatusPendingKYC = "PendingKYC"
)

// User roles.
const (
	RoleMember   = "Member"
	RoleOperator = "Operator"
	RoleAdmin    = "Admin"
)

type User struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone,omitempty"`
	Status         string            `json:"status"` // "Active", "Locked", "PendingKYC"
	Role           string            `json:"role"`   // "Member", "Operator", "Admin"
	OrganizationID string            `json:"organization_id,omitempty"`
	PasswordHash   string            `json:"-"`
	MFAEnrolled    bool              `json:"mfa_enrolled"`
	MFAChannels    []string          `json:"mfa_channels,omitempty"`
	PasskeyCount   int               `json:"passkey_count"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Locked reports whether the account is currently locked.
func (u *User) Locked() bool {
	return u.Status == UserStatusLocked
}

// UserOverview is the admin detail view: the account plus everything an
// operator needs before acting on it.
type UserOverview struct {
	User         *User      `json:"user"`
	Wallets      []*Wallet  `json:"wallets"`
	Sessions     []*Session `json:"sessions"`
	PasskeyCount int        `json:"passkey_count"`
}

type UserSearchCriteria struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Status         string `json:"status,omitempty"`
	Role           string `json:"role,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
