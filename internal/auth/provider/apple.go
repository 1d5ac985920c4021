package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

const appleIssuer = "https://appleid.apple.com"

type AppleConfig struct {
	ClientID string `env:"APPLE_CLIENT_ID"`
	// ClientSecret is the pre-signed ES256 client assertion Apple requires in
	// place of a static secret. Rotating it is an operational concern.
	ClientSecret string `env:"APPLE_CLIENT_SECRET"`
	RedirectURL  string `env:"APPLE_REDIRECT_URL"`
}

func (c AppleConfig) Enabled() bool { return c.ClientID != "" }

// Apple authenticates through Sign in with Apple, which is OIDC with a few
// quirks: name claims only arrive on the first authorization and the email
// may be a private relay address.
type Apple struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewApple(ctx context.Context, cfg AppleConfig) (*Apple, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("provider: apple config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, appleIssuer)
	if err != nil {
		return nil, fmt.Errorf("provider: apple discovery: %w", err)
	}

	return &Apple{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "name", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (a *Apple) Name() string { return "apple" }

func (a *Apple) AuthCodeURL(state, nonce string) string {
	// Apple requires form_post when name or email scopes are requested.
	return a.oauth.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
	)
}

func (a *Apple) Exchange(ctx context.Context, code, nonce string) (*domain.SocialProfile, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: apple: %v", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: apple: missing id_token", ErrExchange)
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: apple: id_token verification: %v", ErrExchange, err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, fmt.Errorf("%w: apple: nonce mismatch", ErrExchange)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		// Apple sends email_verified as either a bool or the string "true".
		EmailVerified any `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: apple: id_token claims: %v", ErrExchange, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: apple: id_token missing sub", ErrExchange)
	}

	profile := &domain.SocialProfile{
		Provider:          a.Name(),
		ProviderAccountID: claims.Subject,
		EmailVerified:     claims.EmailVerified == true || claims.EmailVerified == "true",
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
	}
	if claims.Email != "" {
		profile.Emails = []string{claims.Email}
	}
	if !token.Expiry.IsZero() {
		profile.ExpiresIn = time.Until(token.Expiry)
	}
	return profile, nil
}
