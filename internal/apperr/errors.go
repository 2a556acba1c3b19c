package apperr

import (
	"errors"
	"fmt"
)

// Error categories. Callers match with errors.Is and map them to
// transport-level responses in the api package.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrVerificationFailed = errors.New("verification failed")
	ErrConfiguration      = errors.New("configuration error")
)

// Repository sentinels.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrVersionConflict      = errors.New("version conflict")
	ErrDuplicateKey         = errors.New("idempotent key already exists")
)

// Validationf wraps ErrValidation with a caller-facing message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Transitionf wraps ErrInvalidTransition with the offending transition.
func Transitionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
