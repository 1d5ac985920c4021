package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/presstronic/kalsumed/internal/auth/domain"
	"github.com/presstronic/kalsumed/internal/auth/registry"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/jwtx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
)

// TokenService owns the login/refresh/logout lifecycle. Access tokens are
// pure signatures; refresh tokens additionally live in the registry, which
// is what makes rotation and logout enforceable.
type TokenService struct {
	Store       store.Store
	Registry    registry.Registry
	Credentials *CredentialService

	AccessSigner    *jwtx.Signer
	RefreshSigner   *jwtx.Signer
	RefreshVerifier *jwtx.Verifier

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies the identifier+password pair and starts a session. The
// returned error never distinguishes unknown users from wrong passwords.
func (s *TokenService) Login(ctx context.Context, identifier, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u := s.Credentials.Verify(ctx, identifier, password)
	if u == nil {
		l.Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	return s.StartSession(ctx, u)
}

// StartSession issues a fresh token pair for an already-authenticated user
// and records the refresh token, replacing any previous session.
func (s *TokenService) StartSession(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	pair, entry, err := s.issuePair(u, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.Registry.Record(ctx, u.ID, entry, s.RefreshTTL); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("session started",
		slog.String("user_id", u.ID),
		slog.String("token_id", entry.TokenID),
	)
	return pair, nil
}

// Refresh rotates a session. The presented token must verify, belong to a
// still-existing user, and match the registry entry. Rotation is atomic: of
// two concurrent calls with the same token at most one succeeds, and a
// failed attempt leaves the current session untouched.
func (s *TokenService) Refresh(ctx context.Context, rawToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.RefreshVerifier.Verify(rawToken)
	if err != nil {
		l.Info("refresh rejected", slog.String("reason", "verification"))
		return nil, ErrInvalidToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh rejected", slog.String("reason", "unknown_subject"))
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	var pair *domain.TokenPair
	err = s.Registry.Rotate(ctx, u.ID, claims.ID, cryptox.FingerprintToken(rawToken), s.RefreshTTL,
		func() (registry.Entry, error) {
			p, entry, err := s.issuePair(&u, time.Now())
			if err != nil {
				return registry.Entry{}, err
			}
			pair = p
			return entry, nil
		})
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) || errors.Is(err, registry.ErrMismatch) {
			l.Warn("refresh rejected",
				slog.String("reason", "registry"),
				slog.String("user_id", u.ID),
			)
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	l.Info("session rotated", slog.String("user_id", u.ID))
	return pair, nil
}

// Logout revokes the subject's session. Logging out without a session is a
// no-op, not an error.
func (s *TokenService) Logout(ctx context.Context, subject string) error {
	if err := s.Registry.Revoke(ctx, subject); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("session revoked", slog.String("user_id", subject))
	return nil
}

// issuePair signs an access+refresh pair and returns the registry entry for
// the refresh half. Nothing is recorded here; callers decide between Record
// and Rotate.
func (s *TokenService) issuePair(u *domain.User, now time.Time) (*domain.TokenPair, registry.Entry, error) {
	access, err := s.AccessSigner.Sign(
		jwtx.NewAccessClaims(u.ID, u.Username, u.Roles, s.Issuer, s.AccessTTL, now))
	if err != nil {
		return nil, registry.Entry{}, err
	}

	tokenID := uuid.NewString()
	refresh, err := s.RefreshSigner.Sign(
		jwtx.NewRefreshClaims(u.ID, tokenID, s.Issuer, s.RefreshTTL, now))
	if err != nil {
		return nil, registry.Entry{}, err
	}

	pair := &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.AccessTTL,
	}
	entry := registry.Entry{
		TokenID:     tokenID,
		Fingerprint: cryptox.FingerprintToken(refresh),
	}
	return pair, entry, nil
}
