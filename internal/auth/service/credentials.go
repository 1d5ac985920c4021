package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/presstronic/kalsumed/internal/auth/domain"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

// emailPattern is deliberately liberal. Anything with one @ between
// non-empty halves is looked up as an email; everything else is a username.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

type CredentialService struct {
	Store store.Store
}

// Verify checks identifier+password and returns the matching user, or nil on
// any failure. The nil cases (unknown user, store error, wrong password) are
// indistinguishable to the caller, and an absent user still pays for a hash
// comparison so the latency class does not leak account existence.
func (s *CredentialService) Verify(ctx context.Context, identifier, password string) *domain.User {
	l := slogx.FromContext(ctx)

	var (
		u   domain.User
		err error
	)
	if emailPattern.MatchString(identifier) {
		u, err = s.Store.Users().GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.Store.Users().GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("credential lookup failed", slog.Any("error", err))
		}
		_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
		return nil
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return nil
	}
	return &u
}
