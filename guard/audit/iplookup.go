package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UnknownIP is recorded when the caller IP cannot be resolved
const UnknownIP = "unknown"

// IPLookup resolves the caller's public IP address
type IPLookup interface {
	// Lookup returns the caller IP, or UnknownIP when resolution fails.
	// It never returns an error; the lookup is strictly best-effort.
	Lookup(ctx context.Context) string
}

// IPLookupConfig holds configuration for the external IP lookup client
type IPLookupConfig struct {
	Endpoint    string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// DefaultIPLookupConfig returns the default lookup configuration
func DefaultIPLookupConfig() IPLookupConfig {
	return IPLookupConfig{
		Endpoint:    "https://api.ipify.org?format=json",
		HTTPTimeout: 5 * time.Second,
		CacheTTL:    15 * time.Minute,
	}
}

// IPLookupClient resolves the public IP through an external service and
// caches the result.
type IPLookupClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger

	cacheTTL time.Duration
	cacheMu  sync.Mutex
	cached   string
	cacheExp time.Time
}

// NewIPLookupClient creates a new IP lookup client
func NewIPLookupClient(cfg IPLookupConfig, logger *zap.Logger) *IPLookupClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultIPLookupConfig().Endpoint
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultIPLookupConfig().HTTPTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultIPLookupConfig().CacheTTL
	}

	return &IPLookupClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
		cacheTTL:   cfg.CacheTTL,
	}
}

// Lookup implements IPLookup
func (c *IPLookupClient) Lookup(ctx context.Context) string {
	c.cacheMu.Lock()
	if c.cached != "" && time.Now().Before(c.cacheExp) {
		ip := c.cached
		c.cacheMu.Unlock()
		return ip
	}
	c.cacheMu.Unlock()

	ip, err := c.fetch(ctx)
	if err != nil {
		c.logger.Debug("ip lookup failed", zap.Error(err))
		return UnknownIP
	}

	c.cacheMu.Lock()
	c.cached = ip
	c.cacheExp = time.Now().Add(c.cacheTTL)
	c.cacheMu.Unlock()

	return ip
}

// fetch performs the external lookup call
func (c *IPLookupClient) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if body.IP == "" {
		return "", fmt.Errorf("lookup returned empty ip")
	}

	return body.IP, nil
}

// StaticIPLookup always returns a fixed IP. Used in tests and when the
// caller IP is already known from the request.
type StaticIPLookup string

// Lookup implements IPLookup
func (s StaticIPLookup) Lookup(ctx context.Context) string {
	if s == "" {
		return UnknownIP
	}
	return string(s)
}
