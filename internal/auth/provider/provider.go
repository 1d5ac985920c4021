// Package provider adapts external identity providers to one normalized
// profile shape. Each adapter owns its authorization URL construction and
// callback exchange; nothing outside this package speaks a provider's
// dialect.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

var (
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrExchange is returned when the authorization code could not be
	// exchanged or the resulting identity could not be verified.
	ErrExchange = errors.New("provider: code exchange failed")
)

// Provider is one configured upstream identity provider.
type Provider interface {
	// Name is the stable identifier used in routes and stored links.
	Name() string

	// AuthCodeURL builds the authorization redirect for one login attempt.
	// nonce is ignored by providers that do not support OIDC nonces.
	AuthCodeURL(state, nonce string) string

	// Exchange redeems the callback code and returns the verified profile.
	// nonce must match the value issued alongside the state.
	Exchange(ctx context.Context, code, nonce string) (*domain.SocialProfile, error)
}

// Registry holds the enabled providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
