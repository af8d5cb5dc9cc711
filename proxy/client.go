// Package proxy provides the instrumented outbound HTTP client the
// presentation layer uses for AI service calls. Call sites opt into the
// wrapper explicitly; no ambient global is patched.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/guard/ratelimit"
	"github.com/diu-mct/access-guard/guard/threat"
	"github.com/diu-mct/access-guard/models"
)

// Client forwards requests to a configured AI upstream, consulting the
// rate limiter before each call and feeding the threat detector's
// request counter.
type Client struct {
	upstreams  map[string]string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	detector   *threat.Detector
	logger     *zap.Logger
}

// NewClient creates a new proxy client
func NewClient(upstreams map[string]string, limiter *ratelimit.Limiter, detector *threat.Detector, logger *zap.Logger) *Client {
	return &Client{
		upstreams:  upstreams,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		detector:   detector,
		logger:     logger,
	}
}

// HasUpstream reports whether a service name is configured
func (c *Client) HasUpstream(service string) bool {
	_, ok := c.upstreams[service]
	return ok
}

// Forward sends the body to the named upstream on behalf of the caller.
// The caller identifier keys the rate limit; a denied call never reaches
// the upstream.
func (c *Client) Forward(ctx context.Context, service, identifier string, subject models.Subject, body io.Reader) (*http.Response, error) {
	base, ok := c.upstreams[service]
	if !ok {
		return nil, fmt.Errorf("unknown upstream service %q", service)
	}

	if !c.limiter.IsAllowed(ctx, identifier) {
		return nil, guard.ErrRateLimitExceeded
	}
	c.detector.RecordRequest(ctx, subject)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream call failed: %w", err)
	}

	c.logger.Debug("forwarded upstream call",
		zap.String("service", service),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return resp, nil
}
