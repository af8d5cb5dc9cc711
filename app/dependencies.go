// Package app is the central wiring point for dependency injection.
package app

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/config"
	"github.com/diu-mct/access-guard/guard/audit"
	"github.com/diu-mct/access-guard/guard/authz"
	"github.com/diu-mct/access-guard/guard/ratelimit"
	"github.com/diu-mct/access-guard/guard/session"
	"github.com/diu-mct/access-guard/guard/threat"
	"github.com/diu-mct/access-guard/identity"
	"github.com/diu-mct/access-guard/middleware"
	"github.com/diu-mct/access-guard/proxy"
	"github.com/diu-mct/access-guard/repositories"
	"github.com/diu-mct/access-guard/repositories/postgres"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Profiles repositories.ProfileRepository
	Events   repositories.SecurityEventRepository

	// External collaborators
	Identity identity.Provider

	// Guard services
	Audit    *audit.Service
	Limiter  *ratelimit.Limiter
	Sessions *session.Monitor
	Detector *threat.Detector
	Samples  *threat.SampleStore
	Guard    *authz.Guard

	// Outbound
	Proxy *proxy.Client

	// HTTP
	GuardMiddleware *middleware.GuardMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.Profiles = postgres.NewProfileRepository(deps.DB, logger)
	deps.Events = postgres.NewSecurityEventRepository(deps.DB, logger)

	deps.Identity = identity.NewClient(identity.Config{
		BaseURL:     cfg.Identity.BaseURL,
		APIKey:      cfg.Identity.APIKey,
		HTTPTimeout: cfg.Identity.HTTPTimeout,
	}, logger)

	if err := deps.initGuard(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize guard services: %w", err)
	}

	deps.Proxy = proxy.NewClient(cfg.Guard.ProxyUpstreams, deps.Limiter, deps.Detector, logger)
	deps.GuardMiddleware = middleware.NewGuardMiddleware(deps.Guard, deps.Sessions, deps.Limiter, logger)

	logger.Info("all dependencies initialized")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and audit schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	return nil
}

// initGuard wires the access-control core
func (d *Dependencies) initGuard(cfg *config.Config) error {
	ipLookup := audit.NewIPLookupClient(audit.IPLookupConfig{
		Endpoint: cfg.Guard.IPLookupEndpoint,
	}, d.Logger)

	d.Audit = audit.NewService(d.Events, ipLookup, d.Logger, audit.Config{
		Production:     cfg.IsProduction(),
		SinkEnabled:    cfg.Guard.AuditSinkEnabled,
		MirrorToLogger: cfg.IsDevelopment(),
	})

	d.Limiter = ratelimit.NewLimiter(ratelimit.Config{
		MaxRequests:    cfg.Guard.RateLimitMaxRequests,
		Window:         cfg.Guard.RateLimitWindow,
		MaxIdentifiers: cfg.Guard.RateLimitMaxIdents,
	}, d.Audit, d.Logger)

	d.Sessions = session.NewMonitor(session.Config{
		SessionTimeout: cfg.Guard.SessionTimeout,
		CheckInterval:  cfg.Guard.SessionCheckInterval,
	}, d.Audit, d.Identity.SignOut, d.Logger)

	d.Samples = threat.NewSampleStore(5 * time.Second)
	d.Detector = threat.NewDetector(threat.Config{
		NavigationThreshold: cfg.Guard.NavigationThreshold,
		ClickThreshold:      cfg.Guard.ClickThreshold,
		CallThreshold:       cfg.Guard.CallThreshold,
		SizeDeltaThreshold:  cfg.Guard.DevToolsDeltaPx,
		Production:          cfg.IsProduction(),
	}, d.Samples, d.Audit, d.Logger)
	d.Sessions.SetThreatLevelSource(d.Detector.ThreatLevel)

	pattern, err := regexp.Compile(cfg.Guard.StudentEmailPattern)
	if err != nil {
		return fmt.Errorf("invalid student email pattern: %w", err)
	}

	chain := authz.NewAdminChain(cfg.Guard.AdminEmail, d.Identity, d.Profiles, d.Audit, d.Logger)
	d.Guard = authz.NewGuard(authz.Config{
		LoginPath:           cfg.Guard.LoginPath,
		HomePath:            cfg.Guard.HomePath,
		StudentEmailPattern: pattern,
		StudentDepartment:   cfg.Guard.StudentDepartment,
		StudentUniversity:   cfg.Guard.StudentUniversity,
		Production:          cfg.IsProduction(),
	}, d.Profiles, chain, d.Sessions, d.Audit, d.Logger)

	return nil
}

// Start launches the background services in dependency order
func (d *Dependencies) Start() error {
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	if err := d.Sessions.Start(); err != nil {
		return fmt.Errorf("failed to start session monitor: %w", err)
	}
	if err := d.Detector.Start(); err != nil {
		return fmt.Errorf("failed to start threat detector: %w", err)
	}
	return nil
}

// Shutdown stops background services and closes the database. Safe to
// call after a partial start.
func (d *Dependencies) Shutdown(timeout time.Duration) {
	if d.Detector != nil {
		d.Detector.Stop()
	}
	if d.Sessions != nil {
		d.Sessions.Stop()
	}
	if d.Audit != nil {
		if err := d.Audit.Stop(timeout); err != nil {
			d.Logger.Warn("audit service shutdown incomplete", zap.Error(err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn("database close failed", zap.Error(err))
		}
	}
}
