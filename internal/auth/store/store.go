package store

import (
	"context"
	"errors"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by concrete drivers.
// Sub-repositories keep the surface tidy; multi-step writes that must be
// atomic (user provisioning plus OAuth link creation) go through WithTx.
type Store interface {
	Users() Users
	Roles() Roles
	OAuthAccounts() OAuthAccounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit or Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user with role names resolved.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by exact (already lowercased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user row. Role assignments are separate.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty reports whether any users exist; used by startup seeding.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	CreateRole(ctx context.Context, r domain.Role) error

	ListRoles(ctx context.Context) ([]domain.Role, error)

	// AssignRole grants roleID to userID; assigning twice is a no-op.
	AssignRole(ctx context.Context, userID, roleID string) error
}

type OAuthAccounts interface {
	// GetByProviderAccount resolves a federated identity to its link.
	GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (domain.OAuthAccount, error)

	// CreateOAuthAccount inserts a link. Returns ErrAlreadyExists when the
	// (provider, providerAccountID) pair is already linked.
	CreateOAuthAccount(ctx context.Context, a domain.OAuthAccount) error

	// ListByUser returns all links for a user.
	ListByUser(ctx context.Context, userID string) ([]domain.OAuthAccount, error)
}
