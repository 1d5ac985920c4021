package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs claims with HMAC-SHA256. Access and refresh tokens must use
// separate Signer instances with distinct secrets.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer for the given secret. Secrets shorter than 32
// bytes are rejected; HS256 security degrades with short keys.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwtx: signing secret must be at least 32 bytes")
	}
	return &Signer{secret: secret}, nil
}

func (s *Signer) Sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}
