// Package ratelimit implements a sliding-window request throttle keyed
// by caller identity. State is purely in-memory and never survives a
// process restart.
package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/models"
)

// Config holds limiter configuration
type Config struct {
	MaxRequests    int           // Maximum requests allowed inside the window
	Window         time.Duration // Sliding window length
	MaxIdentifiers int           // Cap on distinct identifiers; least recently used are evicted
}

// DefaultConfig returns the default limiter configuration
func DefaultConfig() Config {
	return Config{
		MaxRequests:    100,
		Window:         60 * time.Second,
		MaxIdentifiers: 10000,
	}
}

// entry holds the ordered request timestamps for one identifier
type entry struct {
	identifier string
	stamps     []time.Time
	element    *list.Element
}

// Limiter is a sliding-window rate limiter. The check and the recording
// of an allowed request happen under one lock so no other caller can
// interleave between them.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List

	cfg      Config
	recorder guard.EventRecorder
	logger   *zap.Logger

	now func() time.Time
}

// NewLimiter creates a new Limiter. The recorder may be nil; denials are
// then only visible through the local logger.
func NewLimiter(cfg Config, recorder guard.EventRecorder, logger *zap.Logger) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.MaxIdentifiers <= 0 {
		cfg.MaxIdentifiers = DefaultConfig().MaxIdentifiers
	}

	return &Limiter{
		entries:  make(map[string]*entry),
		lruList:  list.New(),
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// IsAllowed reports whether the identifier may make a request now.
// Timestamps older than the window are pruned, then the remaining count
// is compared against the limit. At or above the limit the call is
// denied without mutating state; otherwise the current time is appended.
func (l *Limiter) IsAllowed(ctx context.Context, identifier string) bool {
	l.mu.Lock()

	now := l.now()
	e, exists := l.entries[identifier]
	if !exists {
		e = l.insert(identifier)
	} else {
		l.lruList.MoveToFront(e.element)
	}

	e.stamps = pruneOlderThan(e.stamps, now.Add(-l.cfg.Window))

	if len(e.stamps) >= l.cfg.MaxRequests {
		l.mu.Unlock()

		l.logger.Warn("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("max_requests", l.cfg.MaxRequests),
			zap.Duration("window", l.cfg.Window))

		if l.recorder != nil {
			l.recorder.Record(ctx, models.EventRateLimitExceeded, models.Subject{UserID: identifier}, map[string]interface{}{
				"identifier":   identifier,
				"max_requests": l.cfg.MaxRequests,
				"window_ms":    l.cfg.Window.Milliseconds(),
			})
		}
		return false
	}

	e.stamps = append(e.stamps, now)
	l.mu.Unlock()
	return true
}

// Reset clears the identifier's request history unconditionally
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.entries[identifier]; exists {
		e.stamps = e.stamps[:0]
	}
}

// Remaining returns how many requests the identifier has left in the
// current window.
func (l *Limiter) Remaining(identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[identifier]
	if !exists {
		return l.cfg.MaxRequests
	}

	e.stamps = pruneOlderThan(e.stamps, l.now().Add(-l.cfg.Window))
	remaining := l.cfg.MaxRequests - len(e.stamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IdentifierCount returns the number of tracked identifiers
func (l *Limiter) IdentifierCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// insert creates a new identifier entry, evicting the least recently
// used identifier when the cap is reached. Caller must hold the lock.
func (l *Limiter) insert(identifier string) *entry {
	if l.lruList.Len() >= l.cfg.MaxIdentifiers {
		l.evictLRU()
	}

	e := &entry{identifier: identifier}
	e.element = l.lruList.PushFront(e)
	l.entries[identifier] = e
	return e
}

// evictLRU removes the least recently used identifier. Caller must hold
// the lock.
func (l *Limiter) evictLRU() {
	back := l.lruList.Back()
	if back == nil {
		return
	}

	evicted := back.Value.(*entry)
	l.lruList.Remove(back)
	delete(l.entries, evicted.identifier)

	l.logger.Debug("evicted rate limit identifier",
		zap.String("identifier", evicted.identifier))
}

// pruneOlderThan drops timestamps at or before the cutoff. Stamps are
// insertion-ordered, so the first fresh stamp marks the split point.
func pruneOlderThan(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[idx:]...)
}
