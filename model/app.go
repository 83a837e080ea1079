// api/model/app.go
package model

import "time"

// OAuth client app statuses.
const (
	AppStatusActive   = "Active"
	AppStatusDisabled = "Disabled"
)

// App is a registered OAuth client application managed in the admin
// back-office. The client secret is stored hashed; the plaintext value is
// only ever returned once, at creation or rotation.
type App struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ClientID     string    `json:"client_id"`
	SecretHash   string    `json:"-"`
	Status       string    `json:"status"` // "Active", "Disabled"
	RedirectURIs []string  `json:"redirect_uris"`
	OwnerOrgID   string    `json:"owner_org_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RotatedAt    time.Time `json:"rotated_at,omitempty"`
}
