// Package audit implements the security event log: the single
// audit-writing contract every other guard component records through.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

// requestMetaKey is the context key for request metadata
type requestMetaKey struct{}

// RequestMeta carries per-request audit context (stamped by the HTTP
// middleware, read back when an event is built).
type RequestMeta struct {
	IPAddress string
	UserAgent string
	PageURL   string
}

// WithRequestMeta attaches request metadata to the context
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext retrieves request metadata from the context
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}

// Config holds configuration for the Service
type Config struct {
	BufferSize     int  // Size of the event buffer channel
	WorkerCount    int  // Number of concurrent sink writers
	Production     bool // Production mode appends to the external sink
	SinkEnabled    bool // Sink writes can be disabled independently
	MirrorToLogger bool // Development mode mirrors events to the local logger
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:     10000,
		WorkerCount:    5,
		SinkEnabled:    true,
		MirrorToLogger: true,
	}
}

// Service is the append-only security event log. Record never returns an
// error: internal failures are swallowed and only surfaced through the
// local logger.
type Service struct {
	sink     repositories.SecurityEventRepository
	ipLookup IPLookup
	logger   *zap.Logger

	eventChan   chan *models.SecurityEvent
	workerCount int
	bufferSize  int
	production  bool
	sinkEnabled bool
	mirror      bool

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	now func() time.Time
}

// NewService creates a new audit Service. The sink may be nil when sink
// writes are disabled.
func NewService(sink repositories.SecurityEventRepository, ipLookup IPLookup, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if ipLookup == nil {
		ipLookup = StaticIPLookup("")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		sink:        sink,
		ipLookup:    ipLookup,
		logger:      logger,
		eventChan:   make(chan *models.SecurityEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		production:  config.Production,
		sinkEnabled: config.SinkEnabled,
		mirror:      config.MirrorToLogger,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Start starts the background sink writers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize),
		zap.Bool("production", s.production))

	return nil
}

// Stop gracefully stops the service, waiting for pending events to drain
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	close(s.eventChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record implements guard.EventRecorder. It stamps the event with the
// caller IP, request metadata and classified severity, then mirrors it
// to the local logger in development and appends it to the external sink
// in production. It never fails the caller.
func (s *Service) Record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) {
	event := s.buildEvent(ctx, eventType, subject, details)

	if s.mirror || !s.production {
		s.logEvent(event)
	}

	if !s.production || !s.sinkEnabled || s.sink == nil {
		return
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.logger.Warn("audit sink write skipped, service not started",
			zap.String("event_type", event.EventType))
		return
	}

	select {
	case s.eventChan <- event:
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("event_type", event.EventType),
			zap.String("severity", string(event.Severity)))
	}
}

// buildEvent constructs the SecurityEvent for a Record call
func (s *Service) buildEvent(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) *models.SecurityEvent {
	event := models.NewSecurityEvent(eventType).
		WithSubject(subject).
		WithDetails(details)
	event.Timestamp = s.now()

	meta, hasMeta := RequestMetaFromContext(ctx)
	ip := meta.IPAddress
	if ip == "" {
		ip = s.ipLookup.Lookup(ctx)
	}
	if hasMeta {
		event.WithRequest(ip, meta.UserAgent, meta.PageURL)
	} else {
		event.WithRequest(ip, "", "")
	}

	return event
}

// logEvent mirrors an event to the local logger
func (s *Service) logEvent(event *models.SecurityEvent) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.String("severity", string(event.Severity)),
		zap.String("ip_address", event.IPAddress),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", *event.UserID))
	}
	if event.Email != nil {
		fields = append(fields, zap.String("email", *event.Email))
	}

	switch event.Severity {
	case models.SeverityCritical:
		s.logger.Error("security event", fields...)
	case models.SeverityWarning:
		s.logger.Warn("security event", fields...)
	default:
		s.logger.Info("security event", fields...)
	}
}

// worker drains events from the channel into the sink
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.writeEvent(event); err != nil {
			s.logger.Error("failed to write security event",
				zap.Int("worker_id", id),
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// writeEvent appends a single event to the sink
func (s *Service) writeEvent(event *models.SecurityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.sink.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}
