package domain

import "time"

// SocialProfile is the normalized view of a federated identity. Provider
// adapters map their payloads into this one shape so nothing downstream ever
// sees provider-specific fields. Only Provider and ProviderAccountID are
// guaranteed present; everything else is best effort.
type SocialProfile struct {
	Provider          string
	ProviderAccountID string
	Emails            []string
	EmailVerified     bool // provider-asserted ownership of Emails[0]
	GivenName         string
	FamilyName        string
	AccessToken       string
	RefreshToken      string
	ExpiresIn         time.Duration
}

// Email returns the primary email, or empty when the provider sent none.
func (p SocialProfile) Email() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// OAuthAccount links a (provider, providerAccountID) pair to a local user.
// The pair is unique and, once created, never re-pointed at another user.
type OAuthAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
