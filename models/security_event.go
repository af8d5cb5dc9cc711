package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how serious a security event is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ThreatLevel is the coarse escalation indicator maintained by the threat detector
type ThreatLevel string

const (
	ThreatLevelNormal   ThreatLevel = "normal"
	ThreatLevelElevated ThreatLevel = "elevated"
	ThreatLevelHigh     ThreatLevel = "high"
)

// SecurityLevel is the session-wide protection posture
type SecurityLevel string

const (
	SecurityLevelLow    SecurityLevel = "low"
	SecurityLevelMedium SecurityLevel = "medium"
	SecurityLevelHigh   SecurityLevel = "high"
)

// Well-known security event types
const (
	EventFailedLogin                 = "FAILED_LOGIN_ATTEMPT"
	EventUnverifiedEmailAccess       = "UNVERIFIED_EMAIL_ACCESS_ATTEMPT"
	EventUnauthorizedAdminAccess     = "UNAUTHORIZED_ADMIN_ACCESS_ATTEMPT"
	EventAdminEmailMismatch          = "ADMIN_EMAIL_MISMATCH"
	EventUnverifiedAdminEmail        = "UNVERIFIED_ADMIN_EMAIL_ACCESS"
	EventMissingAdminClaim           = "MISSING_ADMIN_CLAIM"
	EventAdminProfileMismatch        = "ADMIN_PROFILE_MISMATCH"
	EventAdminVerificationError      = "ADMIN_VERIFICATION_ERROR"
	EventSuccessfulAdminVerification = "SUCCESSFUL_ADMIN_VERIFICATION"
	EventAdminAccessGranted          = "ADMIN_ACCESS_GRANTED"
	EventAuthCheckError              = "AUTH_CHECK_ERROR"
	EventUnauthenticatedAccess       = "UNAUTHENTICATED_ACCESS_ATTEMPT"
	EventStudentAccessDenied         = "STUDENT_ACCESS_DENIED"
	EventSessionTimeout              = "SESSION_TIMEOUT"
	EventRateLimitExceeded           = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousRapidNavigation   = "SUSPICIOUS_RAPID_NAVIGATION"
	EventSuspiciousRapidClicking     = "SUSPICIOUS_RAPID_CLICKING"
	EventDeveloperToolsDetected      = "DEVELOPER_TOOLS_DETECTED"
	EventExcessiveAPICalls           = "EXCESSIVE_API_CALLS"
	EventSuspiciousPasteDetected     = "SUSPICIOUS_PASTE_DETECTED"
	EventInvalidUpload               = "INVALID_UPLOAD_ATTEMPT"
)

// Subject identifies who a security event is about. Both fields are
// optional; anonymous events (e.g. rate limiting by IP) leave them empty.
type Subject struct {
	UserID string
	Email  string
}

// SecurityEvent is a single append-only audit record. Events are never
// mutated or deleted once written.
type SecurityEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	EventType string          `json:"event_type" db:"event_type"`
	UserID    *string         `json:"user_id,omitempty" db:"user_id"`
	Email     *string         `json:"email,omitempty" db:"email"`
	Severity  Severity        `json:"severity" db:"severity"`
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	PageURL   string          `json:"page_url" db:"page_url"`
	Details   json.RawMessage `json:"details" db:"details"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the SecurityEvent model
func (SecurityEvent) TableName() string {
	return "security_events"
}

// NewSecurityEvent creates a new SecurityEvent with severity derived from
// the event type classification table.
func NewSecurityEvent(eventType string) *SecurityEvent {
	return &SecurityEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Severity:  ClassifySeverity(eventType),
		IPAddress: "unknown",
		Timestamp: time.Now(),
	}
}

// WithSubject sets the subject user and email when present
func (e *SecurityEvent) WithSubject(subject Subject) *SecurityEvent {
	if subject.UserID != "" {
		uid := subject.UserID
		e.UserID = &uid
	}
	if subject.Email != "" {
		email := subject.Email
		e.Email = &email
	}
	return e
}

// WithRequest sets request-scoped metadata
func (e *SecurityEvent) WithRequest(ipAddress, userAgent, pageURL string) *SecurityEvent {
	if ipAddress != "" {
		e.IPAddress = ipAddress
	}
	e.UserAgent = userAgent
	e.PageURL = pageURL
	return e
}

// WithDetails sets the free-form event context
func (e *SecurityEvent) WithDetails(details map[string]interface{}) *SecurityEvent {
	if len(details) == 0 {
		return e
	}
	if data, err := json.Marshal(details); err == nil {
		e.Details = data
	}
	return e
}

// ClassifySeverity derives severity from the event type name.
// Critical covers unauthorized-admin, suspicious-activity and breach-like
// names; warning covers failed logins, rate limiting and invalid uploads;
// everything else is informational.
func ClassifySeverity(eventType string) Severity {
	name := strings.ToUpper(eventType)

	switch {
	case strings.Contains(name, "UNAUTHORIZED_ADMIN"),
		strings.Contains(name, "SUSPICIOUS"),
		strings.Contains(name, "BREACH"):
		return SeverityCritical
	case strings.Contains(name, "FAILED_LOGIN"),
		strings.Contains(name, "RATE_LIMIT"),
		strings.Contains(name, "INVALID_UPLOAD"):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
