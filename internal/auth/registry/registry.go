package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no active refresh token exists for the
	// subject, either because none was ever recorded or it expired.
	ErrNotFound = errors.New("registry: no active refresh token")

	// ErrMismatch is returned when the presented token is not the currently
	// recorded one. A mismatch on a well-formed token usually means the token
	// was already rotated, which is the replay signal.
	ErrMismatch = errors.New("registry: token mismatch")
)

// Entry is the registered state of a subject's current refresh token. The
// registry never stores the token itself, only its id and fingerprint.
type Entry struct {
	TokenID     string
	Fingerprint string
}

// Registry tracks the single active refresh token per subject.
type Registry interface {
	// Record unconditionally installs e as the subject's active token,
	// replacing whatever was there. Used at login.
	Record(ctx context.Context, subject string, e Entry, ttl time.Duration) error

	// Validate checks that the presented token id and fingerprint match the
	// subject's recorded entry.
	Validate(ctx context.Context, subject, tokenID, fingerprint string) error

	// Rotate validates the presented token and, if it matches, calls mint to
	// produce the replacement entry and installs it. The whole sequence is
	// atomic with respect to concurrent rotations of the same subject: at
	// most one caller's mint result is recorded, the rest fail with
	// ErrMismatch. mint is not called when validation fails.
	Rotate(ctx context.Context, subject, tokenID, fingerprint string, ttl time.Duration, mint func() (Entry, error)) error

	// Revoke removes the subject's entry. Revoking a subject with no entry
	// is not an error.
	Revoke(ctx context.Context, subject string) error
}
