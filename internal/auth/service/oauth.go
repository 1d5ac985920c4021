package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/presstronic/kalsumed/internal/auth/domain"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/idx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

var ErrInvalidProfile = errors.New("invalid_provider_profile")

// usernameChars strips everything a derived username may not contain.
var usernameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// OAuthService turns verified provider profiles into local sessions. It owns
// the resolve-or-create algorithm; the provider adapters own everything
// upstream of the normalized profile.
type OAuthService struct {
	Store  store.Store
	Tokens *TokenService
}

// OAuthLogin resolves the profile to a local user and starts a session. The
// password check is bypassed because the provider already authenticated the
// user.
func (s *OAuthService) OAuthLogin(ctx context.Context, profile *domain.SocialProfile) (*domain.TokenPair, error) {
	u, err := s.ResolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.Tokens.StartSession(ctx, u)
}

// ResolveUser maps a provider profile to a local user, first match wins:
//
//  1. an existing link for (provider, providerAccountID),
//  2. an existing user owning the profile's email, but only when the
//     provider asserts the email as verified (linking on an unverified email
//     would let an attacker capture an account by registering the victim's
//     address upstream),
//  3. a just-in-time user with role "user" and no usable local password.
//
// Branches 2 and 3 run in one store transaction so a crash never leaves a
// user without their link.
func (s *OAuthService) ResolveUser(ctx context.Context, profile *domain.SocialProfile) (*domain.User, error) {
	if profile == nil || profile.Provider == "" || profile.ProviderAccountID == "" {
		return nil, ErrInvalidProfile
	}

	u, err := s.userByLink(ctx, profile)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	l := slogx.FromContext(ctx)

	var resolved domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		email := strings.ToLower(profile.Email())

		if email != "" && profile.EmailVerified {
			existing, err := tx.Users().GetUserByEmail(ctx, email)
			if err == nil {
				if err := createLink(ctx, tx, existing.ID, profile); err != nil {
					return err
				}
				l.Info("oauth account linked by email",
					slog.String("provider", profile.Provider),
					slog.String("user_id", existing.ID),
				)
				resolved = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		created, err := s.createUser(ctx, tx, profile, email)
		if err != nil {
			return err
		}
		if err := createLink(ctx, tx, created.ID, profile); err != nil {
			return err
		}
		l.Info("oauth user provisioned",
			slog.String("provider", profile.Provider),
			slog.String("user_id", created.ID),
			slog.String("username", created.Username),
		)
		resolved = created
		return nil
	})
	if err != nil {
		// A concurrent callback for the same provider account may have won
		// the race on the unique (provider, provider_account_id) pair.
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.userByLink(ctx, profile)
		}
		return nil, err
	}

	return &resolved, nil
}

func (s *OAuthService) userByLink(ctx context.Context, profile *domain.SocialProfile) (*domain.User, error) {
	link, err := s.Store.OAuthAccounts().GetByProviderAccount(ctx, profile.Provider, profile.ProviderAccountID)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.Users().GetUserByID(ctx, link.UserID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// createUser provisions a local account for a first-seen federated identity.
// The password hash is random and never disclosed, so local login stays
// impossible until a password is explicitly set.
func (s *OAuthService) createUser(ctx context.Context, tx store.Tx, profile *domain.SocialProfile, email string) (domain.User, error) {
	username, err := pickUsername(ctx, tx, profile, email)
	if err != nil {
		return domain.User{}, err
	}

	placeholder, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(placeholder)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := tx.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	role, err := tx.Roles().GetRoleByName(ctx, domain.RoleUser)
	if err != nil {
		return domain.User{}, fmt.Errorf("default role missing: %w", err)
	}
	if err := tx.Roles().AssignRole(ctx, u.ID, role.ID); err != nil {
		return domain.User{}, err
	}
	u.Roles = []string{role.Name}

	return u, nil
}

func createLink(ctx context.Context, tx store.Tx, userID string, profile *domain.SocialProfile) error {
	link := domain.OAuthAccount{
		ID:                idx.New().String(),
		UserID:            userID,
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
	}
	if profile.ExpiresIn > 0 {
		t := time.Now().Add(profile.ExpiresIn)
		link.ExpiresAt = &t
	}
	return tx.OAuthAccounts().CreateOAuthAccount(ctx, link)
}

// pickUsername derives a username from the email local-part, falling back to
// provider_accountid, then suffixes a counter until the name is free.
func pickUsername(ctx context.Context, tx store.Tx, profile *domain.SocialProfile, email string) (string, error) {
	base := ""
	if email != "" {
		local, _, _ := strings.Cut(email, "@")
		base = usernameChars.ReplaceAllString(strings.ToLower(local), "")
	}
	if base == "" {
		base = usernameChars.ReplaceAllString(
			strings.ToLower(profile.Provider+"_"+profile.ProviderAccountID), "")
	}

	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i+1)
		}
		_, err := tx.Users().GetUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free username for %q", base)
}
