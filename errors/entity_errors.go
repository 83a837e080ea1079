// api/errors/entity_errors.go
package errors

import "errors"

var (
	ErrAppNotFound             = errors.New("app not found")
	ErrAppConflict             = errors.New("app conflict")
	ErrInvalidAppData          = errors.New("invalid app data")
	ErrOrganizationNotFound    = errors.New("organization not found")
	ErrOrganizationConflict    = errors.New("organization conflict")
	ErrInvalidOrganizationData = errors.New("invalid organization data")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrInvalidWalletData       = errors.New("invalid wallet data")
	ErrKYCNotFound             = errors.New("kyc submission not found")
	ErrKYCPending              = errors.New("kyc submission already pending")
	ErrKYCConflict             = errors.New("kyc submission already reviewed")
	ErrInvalidKYCData          = errors.New("invalid kyc submission data")
)
