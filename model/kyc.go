// api/model/kyc.go
package model

import "time"

// KYC submission statuses.
const (
	KYCStatusPending  = "Pending"
	KYCStatusApproved = "Approved"
	KYCStatusRejected = "Rejected"
)

// KYCSubmission captures the document references a user uploads during
// wallet onboarding. Review happens in the admin back-office; approval
// activates the user's account and wallet.
type KYCSubmission struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	DocumentType string    `json:"document_type"` // "passport", "national_id", "driving_license"
	DocumentRef  string    `json:"document_ref"`  // storage key, not the document itself
	SelfieRef    string    `json:"selfie_ref,omitempty"`
	Country      string    `json:"country"`
	Status       string    `json:"status"` // "Pending", "Approved", "Rejected"
	ReviewerID   string    `json:"reviewer_id,omitempty"`
	ReviewNote   string    `json:"review_note,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	ReviewedAt   time.Time `json:"reviewed_at,omitempty"`
}
