// Package session tracks user activity and enforces session expiry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/models"
)

// SignOutFunc forces the current identity out at the identity provider
type SignOutFunc func(ctx context.Context, uid string) error

// Config holds monitor configuration
type Config struct {
	SessionTimeout time.Duration // Inactivity budget before forced sign-out
	CheckInterval  time.Duration // How often the expiry check runs
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 24 * time.Hour,
		CheckInterval:  60 * time.Second,
	}
}

// State is a snapshot of the session's security posture
type State struct {
	LastActivityAt time.Time            `json:"last_activity_at"`
	SessionValid   bool                 `json:"session_valid"`
	SecurityLevel  models.SecurityLevel `json:"security_level"`
	ThreatLevel    models.ThreatLevel   `json:"threat_level"`
}

// Monitor tracks the last user interaction and expires the session when
// the user has been idle past the timeout, or when the identity provider
// reports a stale last sign-in, whichever is stricter.
type Monitor struct {
	mu            sync.Mutex
	lastActivity  time.Time
	sessionValid  bool
	securityLevel models.SecurityLevel
	currentUID    string

	cfg         Config
	recorder    guard.EventRecorder
	signOut     SignOutFunc
	threatLevel func() models.ThreatLevel
	logger      *zap.Logger

	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
	started    bool

	now func() time.Time
}

// NewMonitor creates a new session Monitor
func NewMonitor(cfg Config, recorder guard.EventRecorder, signOut SignOutFunc, logger *zap.Logger) *Monitor {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}

	return &Monitor{
		cfg:           cfg,
		recorder:      recorder,
		signOut:       signOut,
		logger:        logger,
		securityLevel: models.SecurityLevelMedium,
		now:           time.Now,
	}
}

// SetThreatLevelSource wires the threat detector's level into State snapshots
func (m *Monitor) SetThreatLevelSource(fn func() models.ThreatLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threatLevel = fn
}

// SignIn arms the monitor for a newly signed-in identity
func (m *Monitor) SignIn(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentUID = uid
	m.lastActivity = m.now()
	m.sessionValid = true

	m.logger.Debug("session monitor armed", zap.String("uid", uid))
}

// Touch records a qualifying user interaction (pointer, key, scroll,
// touch). Interactions after expiry are ignored; the user must sign in
// again.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sessionValid {
		return
	}
	m.lastActivity = m.now()
}

// IsExpired reports whether the session has been idle past the timeout
func (m *Monitor) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

func (m *Monitor) expiredLocked() bool {
	if m.lastActivity.IsZero() {
		return false
	}
	return m.now().Sub(m.lastActivity) > m.cfg.SessionTimeout
}

// ValidateSession rejects when either local inactivity or the provider's
// own last-sign-in timestamp exceeds the session timeout.
func (m *Monitor) ValidateSession(identity *models.Identity) error {
	if identity == nil {
		return guard.ErrUnauthenticated
	}

	m.mu.Lock()
	localExpired := m.expiredLocked()
	now := m.now()
	m.mu.Unlock()

	if localExpired {
		return guard.NewDomainError(guard.ErrorTypeSessionExpired, "session idle past timeout", nil)
	}
	if !identity.LastSignInAt.IsZero() && now.Sub(identity.LastSignInAt) > m.cfg.SessionTimeout {
		return guard.NewDomainError(guard.ErrorTypeSessionExpired, "provider reports stale sign-in", nil)
	}
	return nil
}

// State returns a snapshot of the session state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := State{
		LastActivityAt: m.lastActivity,
		SessionValid:   m.sessionValid,
		SecurityLevel:  m.securityLevel,
		ThreatLevel:    models.ThreatLevelNormal,
	}
	if m.threatLevel != nil {
		state.ThreatLevel = m.threatLevel()
	}
	return state
}

// SetSecurityLevel adjusts the session's protection posture
func (m *Monitor) SetSecurityLevel(level models.SecurityLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.securityLevel = level
}

// Start launches the recurring expiry check
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("session monitor already started")
	}

	m.loopCtx, m.loopCancel = context.WithCancel(context.Background())
	m.loopWG.Add(1)
	go m.checkLoop(m.loopCtx)

	m.started = true
	m.logger.Info("started session monitor",
		zap.Duration("session_timeout", m.cfg.SessionTimeout),
		zap.Duration("check_interval", m.cfg.CheckInterval))

	return nil
}

// Stop cancels the expiry check. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.loopCancel
	m.mu.Unlock()

	cancel()
	m.loopWG.Wait()
	m.logger.Info("session monitor stopped")
}

// checkLoop runs the expiry check on a fixed interval
func (m *Monitor) checkLoop(ctx context.Context) {
	defer m.loopWG.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckExpiry(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckExpiry terminates the session when it has expired. It records a
// SESSION_TIMEOUT event and forces sign-out once; further checks are
// no-ops until a new identity signs in.
func (m *Monitor) CheckExpiry(ctx context.Context) {
	m.mu.Lock()
	if !m.sessionValid || !m.expiredLocked() {
		m.mu.Unlock()
		return
	}
	m.sessionValid = false
	uid := m.currentUID
	idle := m.now().Sub(m.lastActivity)
	m.mu.Unlock()

	m.logger.Warn("session expired, forcing sign-out",
		zap.String("uid", uid),
		zap.Duration("idle", idle))

	if m.recorder != nil {
		m.recorder.Record(ctx, models.EventSessionTimeout, models.Subject{UserID: uid}, map[string]interface{}{
			"idle_ms":    idle.Milliseconds(),
			"timeout_ms": m.cfg.SessionTimeout.Milliseconds(),
		})
	}

	if m.signOut != nil && uid != "" {
		if err := m.signOut(ctx, uid); err != nil {
			m.logger.Error("forced sign-out failed", zap.String("uid", uid), zap.Error(err))
		}
	}
}
