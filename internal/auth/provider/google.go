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

const googleIssuer = "https://accounts.google.com"

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

func (c GoogleConfig) Enabled() bool { return c.ClientID != "" }

// Google authenticates through Google's OIDC endpoints and verifies the
// returned id_token against Google's published keys.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("provider: google config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("provider: google discovery: %w", err)
	}

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state, nonce string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oidc.Nonce(nonce))
}

func (g *Google) Exchange(ctx context.Context, code, nonce string) (*domain.SocialProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: google: missing id_token", ErrExchange)
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google: id_token verification: %v", ErrExchange, err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, fmt.Errorf("%w: google: nonce mismatch", ErrExchange)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google: id_token claims: %v", ErrExchange, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: google: id_token missing sub", ErrExchange)
	}

	profile := &domain.SocialProfile{
		Provider:          g.Name(),
		ProviderAccountID: claims.Subject,
		EmailVerified:     claims.EmailVerified,
		GivenName:         claims.GivenName,
		FamilyName:        claims.FamilyName,
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
