// Package guard holds the types shared by the access-control core:
// the error taxonomy every deny path maps onto and the audit-recording
// contract all components write through.
package guard

import (
	"context"
	"fmt"

	"github.com/diu-mct/access-guard/models"
)

// EventRecorder is the single audit-writing contract. Implementations
// must never surface failures to the caller; a failed audit write is
// logged locally and swallowed.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{})
}

// ErrorType represents the category of a denial
type ErrorType string

const (
	ErrorTypeUnauthenticated       ErrorType = "unauthenticated"
	ErrorTypeEmailUnverified       ErrorType = "email_unverified"
	ErrorTypeInvalidEmailFormat    ErrorType = "invalid_email_format"
	ErrorTypeMissingProfile        ErrorType = "missing_profile"
	ErrorTypeInsufficientRole      ErrorType = "insufficient_role"
	ErrorTypeSessionExpired        ErrorType = "session_expired"
	ErrorTypeRateLimit             ErrorType = "rate_limit"
	ErrorTypeVerificationTransient ErrorType = "verification_transient"
	ErrorTypeInternal              ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is; two domain errors match when their types match
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrUnauthenticated       = NewDomainError(ErrorTypeUnauthenticated, "authentication required", nil)
	ErrEmailUnverified       = NewDomainError(ErrorTypeEmailUnverified, "email address not verified", nil)
	ErrInvalidEmailFormat    = NewDomainError(ErrorTypeInvalidEmailFormat, "email does not match institutional format", nil)
	ErrMissingProfile        = NewDomainError(ErrorTypeMissingProfile, "no profile record for user", nil)
	ErrInsufficientRole      = NewDomainError(ErrorTypeInsufficientRole, "insufficient role for page", nil)
	ErrSessionExpired        = NewDomainError(ErrorTypeSessionExpired, "session expired", nil)
	ErrRateLimitExceeded     = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	ErrVerificationTransient = NewDomainError(ErrorTypeVerificationTransient, "verification check failed transiently", nil)
)
