package authz

import (
	"context"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/identity"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

// AdminFullName is the sentinel display name an administrator profile
// must carry.
const AdminFullName = "Administrator"

// AdminChain verifies the administrator role through four independent
// gates, all of which must pass:
//
//  1. the email equals the configured administrator email,
//  2. the email is verified,
//  3. a fresh claims refresh asserts admin=true,
//  4. the profile store marks the user admin under the sentinel name.
//
// The chain short-circuits on the first failing gate and logs a distinct
// event per gate so an auditor can see which one failed. Gates 1 and 2
// are local; no network call is made before they pass.
type AdminChain struct {
	adminEmail string
	provider   identity.Provider
	profiles   repositories.ProfileRepository
	recorder   guard.EventRecorder
	logger     *zap.Logger
}

// NewAdminChain creates a new AdminChain
func NewAdminChain(adminEmail string, provider identity.Provider, profiles repositories.ProfileRepository, recorder guard.EventRecorder, logger *zap.Logger) *AdminChain {
	return &AdminChain{
		adminEmail: adminEmail,
		provider:   provider,
		profiles:   profiles,
		recorder:   recorder,
		logger:     logger,
	}
}

// IsAdmin runs the four-gate verification. A transient failure while
// fetching claims or profile is a denied check, never an allow.
func (c *AdminChain) IsAdmin(ctx context.Context, ident *models.Identity) bool {
	if ident == nil {
		return false
	}
	subject := ident.Subject()

	// Gate 1: configured administrator email
	if ident.Email != c.adminEmail {
		c.record(ctx, models.EventAdminEmailMismatch, subject, nil)
		return false
	}

	// Gate 2: verified email
	if !ident.EmailVerified {
		c.record(ctx, models.EventUnverifiedAdminEmail, subject, nil)
		return false
	}

	// Gate 3: fresh claims refresh asserting admin
	claims, err := c.provider.RefreshClaims(ctx, ident.UID)
	if err != nil {
		c.logger.Warn("admin claims refresh failed", zap.String("uid", ident.UID), zap.Error(err))
		c.record(ctx, models.EventAdminVerificationError, subject, map[string]interface{}{
			"check": "claims_refresh",
		})
		return false
	}
	if !claims.Admin {
		c.record(ctx, models.EventMissingAdminClaim, subject, nil)
		return false
	}

	// Gate 4: profile record marked admin under the sentinel name
	profile, err := c.profiles.GetByUserID(ctx, ident.UID)
	if err != nil {
		c.logger.Warn("admin profile lookup failed", zap.String("uid", ident.UID), zap.Error(err))
		c.record(ctx, models.EventAdminVerificationError, subject, map[string]interface{}{
			"check": "profile_lookup",
		})
		return false
	}
	if profile == nil || !profile.IsAdmin || profile.FullName != AdminFullName {
		c.record(ctx, models.EventAdminProfileMismatch, subject, nil)
		return false
	}

	c.record(ctx, models.EventSuccessfulAdminVerification, subject, nil)
	c.record(ctx, models.EventAdminAccessGranted, subject, nil)
	return true
}

// VerifyAccess runs the same four-gate chain. The hosted front end had
// two slightly divergent admin checks; both entry points now share one
// canonical chain.
func (c *AdminChain) VerifyAccess(ctx context.Context, ident *models.Identity) bool {
	return c.IsAdmin(ctx, ident)
}

func (c *AdminChain) record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, eventType, subject, details)
}
