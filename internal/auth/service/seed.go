package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/presstronic/kalsumed/internal/auth/domain"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/idx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

// SeedService brings a fresh database to a usable state: the built-in roles
// always exist, and optionally a first admin account when the users table is
// empty. Runs on every startup; everything it does is idempotent.
type SeedService struct {
	Store store.Store

	// AdminUsername/AdminPassword provision the first admin account. Both
	// empty disables admin seeding.
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

func (s *SeedService) Seed(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		roleIDs := make(map[string]string)
		for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
			role, err := tx.Roles().GetRoleByName(ctx, name)
			if err == nil {
				roleIDs[name] = role.ID
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			role = domain.Role{ID: idx.New().String(), Name: name}
			if err := tx.Roles().CreateRole(ctx, role); err != nil {
				return err
			}
			roleIDs[name] = role.ID
			l.Info("seeded role", slog.String("role", name))
		}

		if s.AdminUsername == "" || s.AdminPassword == "" {
			return nil
		}

		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return nil
		}

		hash, err := cryptox.HashPassword(s.AdminPassword)
		if err != nil {
			return err
		}

		admin := domain.User{
			ID:           idx.New().String(),
			Username:     s.AdminUsername,
			Email:        s.AdminEmail,
			PasswordHash: hash,
		}
		if err := tx.Users().CreateUser(ctx, admin); err != nil {
			return err
		}
		if err := tx.Roles().AssignRole(ctx, admin.ID, roleIDs[domain.RoleAdmin]); err != nil {
			return err
		}

		l.Info("seeded admin account", slog.String("username", s.AdminUsername))
		return nil
	})
}
