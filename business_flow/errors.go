// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidPlan        = errors.New("invalid plan")

	// Verification errors
	ErrTokenNotFound   = errors.New("verification token not found")
	ErrAlreadyVerified = errors.New("already verified")

	// Attestation errors
	ErrAttestationRequired = errors.New("attestation token is required")
	ErrAttestationRejected = errors.New("attestation verification failed")

	// Two-factor errors
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	ErrChallengeNotFound    = errors.New("two-factor challenge not found or expired")
	ErrTwoFactorNotEnabled  = errors.New("two-factor authentication is not enabled")

	// Quota errors
	ErrQuotaExceeded   = errors.New("usage limit reached")
	ErrInvalidToolName = errors.New("unknown tool category")

	// Admin errors
	ErrLastSuperAdmin   = errors.New("cannot remove the last active super-admin")
	ErrSelfModification = errors.New("admins cannot change their own role or status")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// AsBusinessError reports whether err is or wraps a BusinessError and
// assigns it to target when it does.
func AsBusinessError(err error, target **BusinessError) bool {
	return errors.As(err, target)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsInvalidPlan(err error) bool {
	return errors.Is(err, ErrInvalidPlan)
}

func IsTokenNotFound(err error) bool {
	return errors.Is(err, ErrTokenNotFound)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsAttestationRequired(err error) bool {
	return errors.Is(err, ErrAttestationRequired)
}

func IsAttestationRejected(err error) bool {
	return errors.Is(err, ErrAttestationRejected)
}

func IsInvalidTwoFactorCode(err error) bool {
	return errors.Is(err, ErrInvalidTwoFactorCode)
}

func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func IsInvalidToolName(err error) bool {
	return errors.Is(err, ErrInvalidToolName)
}

func IsLastSuperAdmin(err error) bool {
	return errors.Is(err, ErrLastSuperAdmin)
}

func IsSelfModification(err error) bool {
	return errors.Is(err, ErrSelfModification)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
