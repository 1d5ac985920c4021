package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the kalsumed authentication service. It covers
// the unauthenticated surface; Login returns a Session for the rest.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates with an email or username plus password and returns an
// authenticated session.
func (c *SDKClient) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var pair TokenPair
	err := c.postJSON(ctx, "/auth/login",
		map[string]string{"identifier": identifier, "password": password}, &pair)
	if err != nil {
		return nil, err
	}
	return &Session{client: c, tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair without a Session.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := c.postJSON(ctx, "/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Livez reports process liveness.
func (c *SDKClient) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// Readyz reports dependency readiness. A degraded service returns both the
// parsed response and an *APIError carrying the 503.
func (c *SDKClient) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("authsdk: decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{StatusCode: resp.StatusCode, Code: ErrorCodeServerError, Description: health.Status}
	}
	return &health, nil
}

func (c *SDKClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
