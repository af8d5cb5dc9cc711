// Package authz implements the authorization decision procedure the
// page-level guards call before rendering a feature page.
package authz

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/guard/session"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

// Config holds guard configuration
type Config struct {
	LoginPath           string
	HomePath            string
	StudentEmailPattern *regexp.Regexp // Institutional address format
	StudentDepartment   string
	StudentUniversity   string
	Production          bool // Email verification is only enforced in production
}

// DefaultConfig returns guard defaults for the hosted platform
func DefaultConfig() Config {
	return Config{
		LoginPath:           "/login",
		HomePath:            "/",
		StudentEmailPattern: regexp.MustCompile(`^[a-z0-9._%+\-]+@diu\.edu\.bd$`),
		StudentDepartment:   "MCT",
		StudentUniversity:   "Daffodil International University",
	}
}

// Guard answers "may this identity see this page". It always returns a
// decision: transient failures while consulting the profile store or the
// identity provider are conservative denials, never propagated errors.
type Guard struct {
	cfg      Config
	profiles repositories.ProfileRepository
	chain    *AdminChain
	sessions *session.Monitor
	recorder guard.EventRecorder
	logger   *zap.Logger
}

// NewGuard creates a new Guard. The session monitor may be nil; session
// freshness is then not part of the decision.
func NewGuard(cfg Config, profiles repositories.ProfileRepository, chain *AdminChain, sessions *session.Monitor, recorder guard.EventRecorder, logger *zap.Logger) *Guard {
	def := DefaultConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.HomePath == "" {
		cfg.HomePath = def.HomePath
	}
	if cfg.StudentEmailPattern == nil {
		cfg.StudentEmailPattern = def.StudentEmailPattern
	}
	if cfg.StudentDepartment == "" {
		cfg.StudentDepartment = def.StudentDepartment
	}
	if cfg.StudentUniversity == "" {
		cfg.StudentUniversity = def.StudentUniversity
	}

	return &Guard{
		cfg:      cfg,
		profiles: profiles,
		chain:    chain,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// Chain exposes the admin verification chain
func (g *Guard) Chain() *AdminChain {
	return g.chain
}

// Authorize decides whether the identity may access a page requiring the
// given role. Every denying branch records exactly one event of its own
// before returning.
func (g *Guard) Authorize(ctx context.Context, ident *models.Identity, requiredRole models.Role) models.AuthDecision {
	if ident == nil {
		g.record(ctx, models.EventUnauthenticatedAccess, models.Subject{}, map[string]interface{}{
			"required_role": string(requiredRole),
		})
		return models.Deny("Authentication required", g.cfg.LoginPath)
	}
	subject := ident.Subject()

	if g.sessions != nil {
		if err := g.sessions.ValidateSession(ident); err != nil {
			g.record(ctx, models.EventSessionTimeout, subject, map[string]interface{}{
				"required_role": string(requiredRole),
			})
			return models.Deny("Session expired, please sign in again", g.cfg.LoginPath)
		}
	}

	if g.cfg.Production && !ident.EmailVerified {
		g.record(ctx, models.EventUnverifiedEmailAccess, subject, map[string]interface{}{
			"required_role": string(requiredRole),
		})
		return models.Deny("Email verification required", g.cfg.LoginPath)
	}

	switch requiredRole {
	case models.RoleAny:
		return models.Allow()

	case models.RoleAdmin:
		if g.chain.IsAdmin(ctx, ident) {
			return models.Allow()
		}
		g.record(ctx, models.EventUnauthorizedAdminAccess, subject, nil)
		return models.Deny("Administrator access required", g.cfg.HomePath)

	case models.RoleStudent:
		isStudent, err := g.isVerifiedStudent(ctx, ident)
		if err != nil {
			g.logger.Warn("student verification failed",
				zap.String("uid", ident.UID),
				zap.Error(err))
			g.record(ctx, models.EventAuthCheckError, subject, map[string]interface{}{
				"required_role": string(requiredRole),
			})
			return models.Deny("Verification failed, please try again", g.cfg.LoginPath)
		}
		if isStudent || g.chain.IsAdmin(ctx, ident) {
			return models.Allow()
		}
		g.record(ctx, models.EventStudentAccessDenied, subject, nil)
		reason := fmt.Sprintf("Verified %s student access required", g.cfg.StudentDepartment)
		return models.Deny(reason, g.cfg.LoginPath)

	default:
		g.record(ctx, models.EventAuthCheckError, subject, map[string]interface{}{
			"required_role": string(requiredRole),
		})
		return models.Deny("Unknown role requirement", g.cfg.LoginPath)
	}
}

// isVerifiedStudent checks the institutional email format and that the
// profile store carries a matching department and university record.
func (g *Guard) isVerifiedStudent(ctx context.Context, ident *models.Identity) (bool, error) {
	if !g.cfg.StudentEmailPattern.MatchString(ident.Email) {
		return false, nil
	}

	profile, err := g.profiles.GetByUserID(ctx, ident.UID)
	if err != nil {
		return false, guard.NewDomainError(guard.ErrorTypeVerificationTransient, "profile lookup failed", err)
	}
	if profile == nil {
		return false, nil
	}

	return profile.MatchesInstitution(g.cfg.StudentDepartment, g.cfg.StudentUniversity), nil
}

func (g *Guard) record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(ctx, eventType, subject, details)
}
