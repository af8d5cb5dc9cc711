package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		eventType string
		expected  Severity
	}{
		{EventUnauthorizedAdminAccess, SeverityCritical},
		{EventSuspiciousRapidNavigation, SeverityCritical},
		{EventSuspiciousRapidClicking, SeverityCritical},
		{EventSuspiciousPasteDetected, SeverityCritical},
		{"DATA_BREACH_SUSPECTED", SeverityCritical},
		{EventFailedLogin, SeverityWarning},
		{EventRateLimitExceeded, SeverityWarning},
		{EventInvalidUpload, SeverityWarning},
		{EventSessionTimeout, SeverityInfo},
		{EventAdminAccessGranted, SeverityInfo},
		{EventDeveloperToolsDetected, SeverityInfo},
		{EventUnauthenticatedAccess, SeverityInfo},
		{"SOMETHING_NEW", SeverityInfo},
		{"unauthorized_admin_probe", SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySeverity(tt.eventType))
		})
	}
}

func TestNewSecurityEvent(t *testing.T) {
	event := NewSecurityEvent(EventFailedLogin)

	assert.NotEqual(t, "", event.ID.String())
	assert.Equal(t, EventFailedLogin, event.EventType)
	assert.Equal(t, SeverityWarning, event.Severity)
	assert.Equal(t, "unknown", event.IPAddress)
	assert.False(t, event.Timestamp.IsZero())
	assert.Nil(t, event.UserID)
	assert.Nil(t, event.Email)
}

func TestSecurityEvent_WithSubject(t *testing.T) {
	t.Run("full subject", func(t *testing.T) {
		event := NewSecurityEvent(EventSessionTimeout).
			WithSubject(Subject{UserID: "uid-1", Email: "x-40-001@diu.edu.bd"})

		require.NotNil(t, event.UserID)
		require.NotNil(t, event.Email)
		assert.Equal(t, "uid-1", *event.UserID)
		assert.Equal(t, "x-40-001@diu.edu.bd", *event.Email)
	})

	t.Run("anonymous subject leaves nils", func(t *testing.T) {
		event := NewSecurityEvent(EventRateLimitExceeded).WithSubject(Subject{})
		assert.Nil(t, event.UserID)
		assert.Nil(t, event.Email)
	})
}

func TestSecurityEvent_WithRequest(t *testing.T) {
	event := NewSecurityEvent(EventFailedLogin).
		WithRequest("203.0.113.7", "Mozilla/5.0", "/login")

	assert.Equal(t, "203.0.113.7", event.IPAddress)
	assert.Equal(t, "Mozilla/5.0", event.UserAgent)
	assert.Equal(t, "/login", event.PageURL)

	// Empty IP keeps the unknown placeholder
	event = NewSecurityEvent(EventFailedLogin).WithRequest("", "ua", "/x")
	assert.Equal(t, "unknown", event.IPAddress)
}

func TestSecurityEvent_WithDetails(t *testing.T) {
	event := NewSecurityEvent(EventExcessiveAPICalls).
		WithDetails(map[string]interface{}{"call_count": 120})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Details, &decoded))
	assert.Equal(t, float64(120), decoded["call_count"])

	event = NewSecurityEvent(EventExcessiveAPICalls).WithDetails(nil)
	assert.Nil(t, event.Details)
}

func TestIdentity_AdminClaim(t *testing.T) {
	assert.False(t, (&Identity{}).AdminClaim())
	assert.False(t, (&Identity{Claims: map[string]interface{}{"admin": "yes"}}).AdminClaim())
	assert.False(t, (&Identity{Claims: map[string]interface{}{"admin": false}}).AdminClaim())
	assert.True(t, (&Identity{Claims: map[string]interface{}{"admin": true}}).AdminClaim())
}

func TestIdentity_Subject(t *testing.T) {
	var ident *Identity
	assert.Equal(t, Subject{}, ident.Subject())

	ident = &Identity{UID: "uid-1", Email: "a@diu.edu.bd"}
	assert.Equal(t, Subject{UserID: "uid-1", Email: "a@diu.edu.bd"}, ident.Subject())
}

func TestProfile_MatchesInstitution(t *testing.T) {
	p := &Profile{Department: "MCT", University: "Daffodil International University"}
	assert.True(t, p.MatchesInstitution("MCT", "Daffodil International University"))
	assert.False(t, p.MatchesInstitution("CSE", "Daffodil International University"))
	assert.False(t, p.MatchesInstitution("MCT", "Other University"))
}
