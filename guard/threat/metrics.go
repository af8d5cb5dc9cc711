package threat

import (
	"context"
	"sync"
	"time"
)

// SampleStore is a MetricsSource fed by the front end's telemetry
// reports. Samples go stale after the TTL so a closed tab stops
// producing detections.
type SampleStore struct {
	mu       sync.Mutex
	sample   WindowMetrics
	reported time.Time
	ttl      time.Duration

	now func() time.Time
}

// NewSampleStore creates a SampleStore with the given staleness TTL
func NewSampleStore(ttl time.Duration) *SampleStore {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SampleStore{
		ttl: ttl,
		now: time.Now,
	}
}

// Put stores the latest window geometry sample
func (s *SampleStore) Put(sample WindowMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = sample
	s.reported = s.now()
}

// Sample implements MetricsSource
func (s *SampleStore) Sample(ctx context.Context) (WindowMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reported.IsZero() || s.now().Sub(s.reported) > s.ttl {
		return WindowMetrics{}, false
	}
	return s.sample, true
}
