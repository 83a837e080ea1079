// api/util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/evzone/myaccounts/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateUser(user model.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if user.Name == "" {
		return fmt.Errorf("user name cannot be empty")
	}
	if user.Email == "" {
		return fmt.Errorf("user email cannot be empty")
	}
	if !strings.Contains(user.Email, "@") {
		return fmt.Errorf("user email is not valid")
	}
	if user.Status != "" &&
		user.Status != model.UserStatusActive &&
		user.Status != model.UserStatusLocked &&
		user.Status != model.UserStatusPendingKYC {
		return fmt.Errorf("unknown user status: %s", user.Status)
	}
	// Add more validation rules as needed
	return nil
}

func (v *ValidationUtil) ValidateApp(app model.App) error {
	if app.Name == "" {
		return fmt.Errorf("app name cannot be empty")
	}
	if len(app.RedirectURIs) == 0 {
		return fmt.Errorf("app must have at least one redirect URI")
	}
	for _, uri := range app.RedirectURIs {
		if !strings.HasPrefix(uri, "https://") && !strings.HasPrefix(uri, "http://localhost") {
			return fmt.Errorf("redirect URI must use https: %s", uri)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateOrganization(organization model.Organization) error {
	if organization.ID == "" {
		return fmt.Errorf("organization ID cannot be empty")
	}
	if organization.Name == "" {
		return fmt.Errorf("organization name cannot be empty")
	}
	// Add more validation rules as needed
	return nil
}

func (v *ValidationUtil) ValidateWallet(wallet model.Wallet) error {
	if wallet.OwnerID == "" {
		return fmt.Errorf("wallet owner ID cannot be empty")
	}
	if len(wallet.Currency) != 3 {
		return fmt.Errorf("wallet currency must be a 3-letter code")
	}
	return nil
}

func (v *ValidationUtil) ValidateKYCSubmission(submission model.KYCSubmission) error {
	if submission.UserID == "" {
		return fmt.Errorf("submission user ID cannot be empty")
	}
	if submission.DocumentType == "" {
		return fmt.Errorf("document type cannot be empty")
	}
	if submission.DocumentRef == "" {
		return fmt.Errorf("document reference cannot be empty")
	}
	if submission.Country == "" {
		return fmt.Errorf("country cannot be empty")
	}
	return nil
}

// ValidateActionRequest checks a guarded action request before a flow is
// opened. A failing request never reaches the re-authentication step.
func (v *ValidationUtil) ValidateActionRequest(req model.ActionRequest) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("unknown action kind: %s", req.Kind)
	}
	if req.TargetID == "" {
		return fmt.Errorf("action target ID cannot be empty")
	}
	if len(strings.TrimSpace(req.Reason)) < model.MinReasonLength {
		return fmt.Errorf("reason must be at least %d characters", model.MinReasonLength)
	}
	if req.Kind == model.ActionRedeemRecoveryCode && req.Code == "" {
		return fmt.Errorf("recovery code cannot be empty")
	}
	return nil
}
