package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Session is an authenticated client. It is safe for concurrent use; Refresh
// swaps the token pair under a lock.
type Session struct {
	client *SDKClient

	mu     sync.RWMutex
	tokens TokenPair
}

// Tokens returns a copy of the session's current token pair.
func (s *Session) Tokens() TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// Refresh rotates the session's refresh token and replaces both tokens. The
// previous refresh token is dead afterwards regardless of outcome.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.client.Refresh(ctx, s.tokens.RefreshToken)
	if err != nil {
		return err
	}
	s.tokens = *pair
	return nil
}

// Logout revokes the session server-side.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/auth/logout")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}

// UserInfo fetches the authenticated user's profile.
func (s *Session) UserInfo(ctx context.Context) (*UserInfo, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/userinfo")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("authsdk: decode userinfo: %w", err)
	}
	return &info, nil
}

func (s *Session) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.client.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	req.Header.Set("Authorization", "Bearer "+s.tokens.AccessToken)
	s.mu.RUnlock()

	return s.client.HTTPClient.Do(req)
}
