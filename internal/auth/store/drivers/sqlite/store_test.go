package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/presstronic/kalsumed/internal/auth/domain"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/idx"
)

// newTestStore opens a per-test in-memory database with migrations applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, username, email string) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsers_CreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice", "alice@example.com")

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Empty(t, byID.Roles)

	byEmail, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byUsername, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byUsername.ID)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	seedUser(t, s, "alice", "alice@example.com")

	err := s.Users().CreateUser(context.Background(), domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: "x",
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_EmptyEmailNeverMatches(t *testing.T) {
	s := newTestStore(t)

	seedUser(t, s, "ghost", "")

	_, err := s.Users().GetUserByEmail(context.Background(), "")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoles_AssignAndResolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := domain.Role{ID: idx.New().String(), Name: domain.RoleAdmin}
	user := domain.Role{ID: idx.New().String(), Name: domain.RoleUser}
	require.NoError(t, s.Roles().CreateRole(ctx, admin))
	require.NoError(t, s.Roles().CreateRole(ctx, user))

	u := seedUser(t, s, "alice", "alice@example.com")
	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, admin.ID))
	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, user.ID))
	// Idempotent re-assignment.
	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, admin.ID))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{domain.RoleAdmin, domain.RoleUser}, got.Roles)

	roles, err := s.Roles().ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
}

func TestOAuthAccounts_UniquePair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "bob", "bob@example.com")

	link := domain.OAuthAccount{
		ID:                idx.New().String(),
		UserID:            u.ID,
		Provider:          "google",
		ProviderAccountID: "g-123",
	}
	require.NoError(t, s.OAuthAccounts().CreateOAuthAccount(ctx, link))

	got, err := s.OAuthAccounts().GetByProviderAccount(ctx, "google", "g-123")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)

	// Same pair again, even for another user, must be rejected.
	other := seedUser(t, s, "eve", "eve@example.com")
	err = s.OAuthAccounts().CreateOAuthAccount(ctx, domain.OAuthAccount{
		ID:                idx.New().String(),
		UserID:            other.ID,
		Provider:          "google",
		ProviderAccountID: "g-123",
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	links, err := s.OAuthAccounts().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Username:     "rollback-me",
			PasswordHash: "x",
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.Users().GetUserByUsername(ctx, "rollback-me")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_Commit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{ID: idx.New().String(), Username: "committed", PasswordHash: "x"}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.OAuthAccounts().CreateOAuthAccount(ctx, domain.OAuthAccount{
			ID:                idx.New().String(),
			UserID:            u.ID,
			Provider:          "github",
			ProviderAccountID: "gh-1",
		})
	})
	require.NoError(t, err)

	u, err := s.Users().GetUserByUsername(ctx, "committed")
	require.NoError(t, err)

	link, err := s.OAuthAccounts().GetByProviderAccount(ctx, "github", "gh-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, link.UserID)
}
