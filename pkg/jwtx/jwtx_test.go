package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("test-access-secret-0123456789abcdef")
	refreshSecret = []byte("test-refresh-secret-0123456789abcdef")
)

const testIssuer = "kalsumed-auth-test"

func TestSignAndVerify_Access(t *testing.T) {
	signer, err := NewSigner(accessSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("user-1", "alice", []string{"admin", "user"}, testIssuer, DefaultAccessTokenTTL, now)

	raw, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(raw, ".")), "compact JWS form")

	verifier := NewVerifier(accessSecret, testIssuer, TokenTypeAccess)
	got, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, []string{"admin", "user"}, got.Roles)
	require.Equal(t, TokenTypeAccess, got.TokenType)

	// exp - iat equals the configured TTL
	require.Equal(t, DefaultAccessTokenTTL,
		got.ExpiresAt.Time.Sub(got.IssuedAt.Time))
}

func TestVerify_WrongTokenType(t *testing.T) {
	signer, err := NewSigner(refreshSecret)
	require.NoError(t, err)

	claims := NewRefreshClaims("user-1", uuid.NewString(), testIssuer, DefaultRefreshTokenTTL, time.Now().UTC())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	// Same secret, wrong expected type.
	verifier := NewVerifier(refreshSecret, testIssuer, TokenTypeAccess)
	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrTokenType)
}

func TestVerify_CrossSecretRejected(t *testing.T) {
	signer, err := NewSigner(accessSecret)
	require.NoError(t, err)

	claims := NewAccessClaims("user-1", "alice", nil, testIssuer, DefaultAccessTokenTTL, time.Now().UTC())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := NewVerifier(refreshSecret, testIssuer, TokenTypeAccess)
	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerify_Expired(t *testing.T) {
	signer, err := NewSigner(refreshSecret)
	require.NoError(t, err)

	// Expiry is strict: exp one second in the past already fails.
	past := time.Now().UTC().Add(-time.Hour - time.Second)
	claims := NewRefreshClaims("user-1", uuid.NewString(), testIssuer, time.Hour, past)
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := NewVerifier(refreshSecret, testIssuer, TokenTypeRefresh)
	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_IssuerMismatch(t *testing.T) {
	signer, err := NewSigner(accessSecret)
	require.NoError(t, err)

	claims := NewAccessClaims("user-1", "alice", nil, "someone-else", DefaultAccessTokenTTL, time.Now().UTC())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := NewVerifier(accessSecret, testIssuer, TokenTypeAccess)
	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerify_Malformed(t *testing.T) {
	verifier := NewVerifier(accessSecret, testIssuer, TokenTypeAccess)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(raw)
		require.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestNewSigner_RejectsShortSecret(t *testing.T) {
	_, err := NewSigner([]byte("short"))
	require.Error(t, err)
}

func TestRefreshClaims_UniqueTokenID(t *testing.T) {
	now := time.Now().UTC()
	c1 := NewRefreshClaims("user-1", uuid.NewString(), testIssuer, DefaultRefreshTokenTTL, now)
	c2 := NewRefreshClaims("user-1", uuid.NewString(), testIssuer, DefaultRefreshTokenTTL, now)

	require.NotEmpty(t, c1.ID)
	require.NotEqual(t, c1.ID, c2.ID, "jti is unique per issuance")
}
