package domain

import "time"

// TokenPair is what login, refresh, and the OAuth callback all return: a
// short-lived JWT access token and a longer-lived JWT refresh token.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    time.Duration `json:"-"`
}
