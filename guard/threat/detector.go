// Package threat implements the heuristic security detectors. Every
// detector is advisory: it records security events and moves the threat
// level, but never denies access by itself.
package threat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/models"
)

// WindowMetrics is a sample of the browser window geometry reported by
// the front end.
type WindowMetrics struct {
	OuterWidth  int `json:"outer_width"`
	InnerWidth  int `json:"inner_width"`
	OuterHeight int `json:"outer_height"`
	InnerHeight int `json:"inner_height"`
}

// MetricsSource supplies the latest window geometry sample
type MetricsSource interface {
	Sample(ctx context.Context) (WindowMetrics, bool)
}

// Config holds detector thresholds
type Config struct {
	NavigationWindow    time.Duration // Rolling bucket for history transitions
	NavigationThreshold int           // Transitions per bucket before suspicion rises
	SuspicionLimit      int           // Suspicion count above which threat goes high
	ClickInterval       time.Duration // Max inter-click gap for a qualifying click
	ClickThreshold      int           // Consecutive qualifying clicks before logging
	ProbeInterval       time.Duration // Dev-tools probe period
	SizeDeltaThreshold  int           // Outer/inner window delta in px indicating dev tools
	CallDecay           time.Duration // How long a request counts against the call counter
	CallThreshold       int           // Requests inside the decay window before logging
	Production          bool          // Dev-tools detection only fires in production
}

// DefaultConfig returns the default detector thresholds
func DefaultConfig() Config {
	return Config{
		NavigationWindow:    10 * time.Second,
		NavigationThreshold: 20,
		SuspicionLimit:      3,
		ClickInterval:       100 * time.Millisecond,
		ClickThreshold:      10,
		ProbeInterval:       time.Second,
		SizeDeltaThreshold:  160,
		CallDecay:           60 * time.Second,
		CallThreshold:       100,
	}
}

// Detector runs the independent threat heuristics and maintains the
// session threat level.
type Detector struct {
	mu          sync.Mutex
	navTimes    []time.Time
	suspicion   int
	threatLevel models.ThreatLevel

	lastClick   time.Time
	clickStreak int

	callTimes     []time.Time
	callsFlagged  bool
	toolsDetected bool

	cfg      Config
	metrics  MetricsSource
	recorder guard.EventRecorder
	logger   *zap.Logger

	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
	started    bool

	now func() time.Time
}

// NewDetector creates a new Detector. The metrics source may be nil,
// which disables the dev-tools probe.
func NewDetector(cfg Config, metrics MetricsSource, recorder guard.EventRecorder, logger *zap.Logger) *Detector {
	def := DefaultConfig()
	if cfg.NavigationWindow <= 0 {
		cfg.NavigationWindow = def.NavigationWindow
	}
	if cfg.NavigationThreshold <= 0 {
		cfg.NavigationThreshold = def.NavigationThreshold
	}
	if cfg.SuspicionLimit <= 0 {
		cfg.SuspicionLimit = def.SuspicionLimit
	}
	if cfg.ClickInterval <= 0 {
		cfg.ClickInterval = def.ClickInterval
	}
	if cfg.ClickThreshold <= 0 {
		cfg.ClickThreshold = def.ClickThreshold
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	if cfg.SizeDeltaThreshold <= 0 {
		cfg.SizeDeltaThreshold = def.SizeDeltaThreshold
	}
	if cfg.CallDecay <= 0 {
		cfg.CallDecay = def.CallDecay
	}
	if cfg.CallThreshold <= 0 {
		cfg.CallThreshold = def.CallThreshold
	}

	return &Detector{
		cfg:         cfg,
		metrics:     metrics,
		recorder:    recorder,
		logger:      logger,
		threatLevel: models.ThreatLevelNormal,
		now:         time.Now,
	}
}

// ThreatLevel returns the current escalation level
func (d *Detector) ThreatLevel() models.ThreatLevel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threatLevel
}

// ObserveNavigation counts a browser history transition. Above the
// threshold inside the rolling bucket the suspicion counter rises and
// the threat level escalates.
func (d *Detector) ObserveNavigation(ctx context.Context, subject models.Subject) {
	d.mu.Lock()

	now := d.now()
	d.navTimes = append(d.navTimes, now)
	d.navTimes = pruneBefore(d.navTimes, now.Add(-d.cfg.NavigationWindow))

	if len(d.navTimes) <= d.cfg.NavigationThreshold {
		d.mu.Unlock()
		return
	}

	d.suspicion++
	if d.suspicion > d.cfg.SuspicionLimit {
		d.threatLevel = models.ThreatLevelHigh
	} else {
		d.threatLevel = models.ThreatLevelElevated
	}
	suspicion := d.suspicion
	level := d.threatLevel
	count := len(d.navTimes)
	d.navTimes = d.navTimes[:0]
	d.mu.Unlock()

	d.logger.Warn("rapid navigation detected",
		zap.Int("transitions", count),
		zap.Int("suspicion", suspicion),
		zap.String("threat_level", string(level)))

	d.record(ctx, models.EventSuspiciousRapidNavigation, subject, map[string]interface{}{
		"transitions":  count,
		"window_ms":    d.cfg.NavigationWindow.Milliseconds(),
		"suspicion":    suspicion,
		"threat_level": string(level),
	})
}

// ObserveClick counts a click. Ten consecutive clicks less than the
// click interval apart log a rapid-clicking event and reset the streak.
func (d *Detector) ObserveClick(ctx context.Context, subject models.Subject) {
	d.mu.Lock()

	now := d.now()
	if !d.lastClick.IsZero() && now.Sub(d.lastClick) < d.cfg.ClickInterval {
		d.clickStreak++
	} else {
		d.clickStreak = 0
	}
	d.lastClick = now

	if d.clickStreak < d.cfg.ClickThreshold {
		d.mu.Unlock()
		return
	}
	streak := d.clickStreak
	d.clickStreak = 0
	d.mu.Unlock()

	d.record(ctx, models.EventSuspiciousRapidClicking, subject, map[string]interface{}{
		"consecutive_clicks": streak,
		"max_interval_ms":    d.cfg.ClickInterval.Milliseconds(),
	})
}

// RecordRequest counts an outbound API call against the rolling decay
// window. Crossing the threshold logs an excessive-calls event once per
// continuous burst.
func (d *Detector) RecordRequest(ctx context.Context, subject models.Subject) {
	d.mu.Lock()

	now := d.now()
	d.callTimes = append(d.callTimes, now)
	d.callTimes = pruneBefore(d.callTimes, now.Add(-d.cfg.CallDecay))
	count := len(d.callTimes)

	if count <= d.cfg.CallThreshold {
		d.callsFlagged = false
		d.mu.Unlock()
		return
	}
	if d.callsFlagged {
		d.mu.Unlock()
		return
	}
	d.callsFlagged = true
	d.mu.Unlock()

	d.record(ctx, models.EventExcessiveAPICalls, subject, map[string]interface{}{
		"calls":     count,
		"window_ms": d.cfg.CallDecay.Milliseconds(),
		"threshold": d.cfg.CallThreshold,
	})
}

// Start launches the dev-tools probe when a metrics source is wired
func (d *Detector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("threat detector already started")
	}
	d.started = true

	if d.metrics == nil {
		d.logger.Debug("dev-tools probe disabled, no metrics source")
		return nil
	}

	d.loopCtx, d.loopCancel = context.WithCancel(context.Background())
	d.loopWG.Add(1)
	go d.probeLoop(d.loopCtx)

	d.logger.Info("started threat detector",
		zap.Duration("probe_interval", d.cfg.ProbeInterval),
		zap.Bool("production", d.cfg.Production))

	return nil
}

// Stop cancels the probe. Safe to call more than once.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	cancel := d.loopCancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		d.loopWG.Wait()
	}
	d.logger.Info("threat detector stopped")
}

// probeLoop samples window geometry on a fixed interval
func (d *Detector) probeLoop(ctx context.Context) {
	defer d.loopWG.Done()

	ticker := time.NewTicker(d.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe compares outer and inner window sizes against the dev-tools
// threshold. Detection fires one event per continuous detection and
// re-arms once the geometry returns to normal. Only active in
// production.
func (d *Detector) Probe(ctx context.Context) {
	if d.metrics == nil {
		return
	}

	sample, ok := d.metrics.Sample(ctx)
	if !ok {
		return
	}

	widthDelta := sample.OuterWidth - sample.InnerWidth
	heightDelta := sample.OuterHeight - sample.InnerHeight
	detected := widthDelta > d.cfg.SizeDeltaThreshold || heightDelta > d.cfg.SizeDeltaThreshold

	d.mu.Lock()
	if !detected {
		d.toolsDetected = false
		d.mu.Unlock()
		return
	}
	if d.toolsDetected || !d.cfg.Production {
		d.mu.Unlock()
		return
	}
	d.toolsDetected = true
	d.mu.Unlock()

	d.record(ctx, models.EventDeveloperToolsDetected, models.Subject{}, map[string]interface{}{
		"width_delta":  widthDelta,
		"height_delta": heightDelta,
		"threshold_px": d.cfg.SizeDeltaThreshold,
	})
}

// record writes an event when a recorder is wired
func (d *Detector) record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) {
	if d.recorder == nil {
		return
	}
	d.recorder.Record(ctx, eventType, subject, details)
}

// pruneBefore drops timestamps at or before the cutoff
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[idx:]...)
}
