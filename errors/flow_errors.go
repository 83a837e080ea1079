// api/errors/flow_errors.go
package errors

import "errors"

var (
	ErrFlowNotFound      = errors.New("action flow not found")
	ErrFlowOpen          = errors.New("another action flow is already open")
	ErrInvalidAction     = errors.New("invalid action request")
	ErrReasonTooShort    = errors.New("reason must be at least 8 characters")
	ErrReAuthFailed      = errors.New("re-authentication failed")
	ErrFlowNotCancelable = errors.New("flow can no longer be cancelled")
	ErrFlowState         = errors.New("operation not permitted in current flow state")
	ErrActionRejected    = errors.New("action rejected")
)
