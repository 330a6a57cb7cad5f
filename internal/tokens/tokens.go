// Package tokens mints and validates the short-lived session tokens the
// token service hands to browser clients. Tokens are HS256 JWTs carrying
// the model the session may use; they exist only in memory on both ends.
package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the payload of a session token. The jti makes every token
// single-use distinguishable.
type Claims struct {
	Model string `json:"model"`
	jwt.RegisteredClaims
}

// Minter issues and validates session tokens with a shared HMAC key.
type Minter struct {
	key []byte
	ttl time.Duration
}

// NewMinter builds a Minter. ttl bounds how long a minted token stays
// valid; connections established before expiry outlive it.
func NewMinter(key []byte, ttl time.Duration) (*Minter, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("tokens: signing key must not be empty")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Minter{key: key, ttl: ttl}, nil
}

// Mint issues one session token scoped to model. Returns the signed token
// and its expiry.
func (m *Minter) Mint(model string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Model: model,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "mkevoice-tokend",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: sign: %w", err)
	}
	return signed, expires, nil
}

// Validate parses and verifies a session token, returning its claims.
func (m *Minter) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("tokens: validate: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("tokens: invalid claims")
	}
	return claims, nil
}
