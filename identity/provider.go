package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/models"
)

// Provider is the identity-provider contract the guard components
// consume. RefreshClaims must force a fresh token so claim changes
// (admin grants or revocations) are visible immediately.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, string, error)
	SignOut(ctx context.Context, uid string) error
	RefreshClaims(ctx context.Context, uid string) (*Claims, error)
}

// Config holds configuration for the provider client
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// Client talks to the hosted identity provider over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new provider client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
	}
}

// tokenResponse is the provider's token envelope
type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// SignIn exchanges credentials for an identity and its token. Provider
// errors are returned verbatim so the page layer can display them.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Identity, string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := c.post(ctx, "/v1/accounts/sign-in", body, &resp); err != nil {
		return nil, "", err
	}

	ident, err := IdentityFromToken(resp.Token)
	if err != nil {
		return nil, "", fmt.Errorf("sign-in returned unusable token: %w", err)
	}

	c.logger.Debug("sign-in succeeded", zap.String("uid", ident.UID))
	return ident, resp.Token, nil
}

// SignOut revokes the user's sessions at the provider
func (c *Client) SignOut(ctx context.Context, uid string) error {
	body := map[string]string{"uid": uid}
	if err := c.post(ctx, "/v1/accounts/sign-out", body, nil); err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}
	return nil
}

// RefreshClaims forces a token refresh and returns the fresh claims
func (c *Client) RefreshClaims(ctx context.Context, uid string) (*Claims, error) {
	body := map[string]string{"uid": uid}

	var resp tokenResponse
	if err := c.post(ctx, "/v1/accounts/claims", body, &resp); err != nil {
		return nil, err
	}

	claims, err := ParseToken(resp.Token)
	if err != nil {
		return nil, fmt.Errorf("claims refresh returned unusable token: %w", err)
	}
	return claims, nil
}

// post sends a JSON request to the provider and decodes the response.
// Non-2xx responses surface the provider's own error message.
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody tokenResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			// Provider error messages pass through verbatim
			return fmt.Errorf("%s", errBody.Error)
		}
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
