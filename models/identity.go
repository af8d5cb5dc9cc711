package models

import (
	"time"
)

// Role represents the access level a page requires
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleAny     Role = "any"
)

// Identity is the authenticated principal as asserted by the identity
// provider. It is read-only to this core.
type Identity struct {
	UID           string                 `json:"uid"`
	Email         string                 `json:"email"`
	EmailVerified bool                   `json:"email_verified"`
	DisplayName   string                 `json:"display_name"`
	Claims        map[string]interface{} `json:"claims,omitempty"`
	LastSignInAt  time.Time              `json:"last_sign_in_at"`
}

// AdminClaim reports whether the provider-asserted admin claim is set.
// Claims carried on the identity may be stale; the admin chain always
// re-checks against a fresh claims refresh.
func (i *Identity) AdminClaim() bool {
	if i.Claims == nil {
		return false
	}
	v, ok := i.Claims["admin"].(bool)
	return ok && v
}

// Subject returns the audit subject for this identity
func (i *Identity) Subject() Subject {
	if i == nil {
		return Subject{}
	}
	return Subject{UserID: i.UID, Email: i.Email}
}

// AuthDecision is the result of an authorization request. It is computed
// fresh per request and never persisted.
type AuthDecision struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Allow returns an allowing decision
func Allow() AuthDecision {
	return AuthDecision{Allowed: true}
}

// Deny returns a denying decision with a human-readable reason and the
// path the caller should redirect to
func Deny(reason, redirectTo string) AuthDecision {
	return AuthDecision{Allowed: false, Reason: reason, RedirectTo: redirectTo}
}
