package guard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrorTypeSessionExpired, "session idle past timeout", nil)
	assert.Equal(t, "session_expired: session idle past timeout", err.Error())

	cause := errors.New("store down")
	err = NewDomainError(ErrorTypeVerificationTransient, "profile lookup failed", cause)
	assert.Equal(t, "verification_transient: profile lookup failed (store down)", err.Error())
}

func TestDomainError_IsMatchesByType(t *testing.T) {
	err := NewDomainError(ErrorTypeSessionExpired, "provider reports stale sign-in", nil)

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
	assert.False(t, err.Is(errors.New("plain")))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("store down")
	err := NewDomainError(ErrorTypeVerificationTransient, "profile lookup failed", cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("authorize: %w", err)
	var derr *DomainError
	require.ErrorAs(t, wrapped, &derr)
	assert.Equal(t, ErrorTypeVerificationTransient, derr.Type)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil).
		WithDetail("identifier", "uid-1").
		WithDetail("max_requests", 100)

	assert.Equal(t, "uid-1", err.Details["identifier"])
	assert.Equal(t, 100, err.Details["max_requests"])
}
