package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrTokenType  = errors.New("jwtx: wrong token type")
)

// Verifier validates tokens of one type against one secret. Presenting an
// access token to the refresh verifier fails on both signature and typ.
type Verifier struct {
	secret    []byte
	issuer    string
	tokenType string
	parser    *jwt.Parser
}

// NewVerifier returns a Verifier for tokens of tokenType signed with secret.
// Expiry is strict: a token past its exp fails, with no clock-skew leeway.
func NewVerifier(secret []byte, issuer, tokenType string) *Verifier {
	return &Verifier{
		secret:    secret,
		issuer:    issuer,
		tokenType: tokenType,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses and validates raw, returning its claims on success.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrInvalidSig
		}
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenType != v.tokenType {
		return Claims{}, ErrTokenType
	}

	return claims, nil
}
