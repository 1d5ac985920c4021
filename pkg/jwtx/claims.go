package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type values carried in the "typ" claim. Access and refresh tokens are
// signed with distinct secrets, but the claim makes cross-type replay fail
// even if the secrets were ever unified by misconfiguration.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Default token TTLs. Short access tokens bound the role-staleness window;
// the refresh TTL bounds how long an idle session survives.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims are the JWT claims this service issues. Role names are embedded in
// access tokens at issuance time; a role revoked later takes effect at the
// next refresh, not mid-lifetime.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType is "access" or "refresh".
	TokenType string `json:"typ"`

	// Username of the authenticated user (access tokens only).
	Username string `json:"username,omitempty"`

	// Roles held by the user at issuance time (access tokens only).
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds claims for a short-lived access token.
func NewAccessClaims(
	subject, username string,
	roles []string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: TokenTypeAccess,
		Username:  username,
		Roles:     roles,
	}
}

// NewRefreshClaims builds claims for a refresh token. tokenID becomes the
// "jti" claim and is the unit of revocation tracked by the refresh registry.
func NewRefreshClaims(
	subject, tokenID string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        tokenID,
		},
		TokenType: TokenTypeRefresh,
	}
}
