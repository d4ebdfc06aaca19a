// Package token mints the signed application credential handed back to the
// browser after a successful callback.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims embeds the resolved user payload verbatim alongside the registered
// JWT claims. The payload stays opaque: the relay never interprets it.
type Claims struct {
	User json.RawMessage `json:"user"`
	jwt.RegisteredClaims
}

// Issuer produces HS256-signed bearer tokens with a fixed lifetime.
type Issuer struct {
	mu  sync.RWMutex
	key []byte

	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates a token issuer. ttl is the token lifetime from issuance.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// Issue signs a token embedding user as the "user" claim, expiring exactly
// ttl after issuance.
func (i *Issuer) Issue(user json.RawMessage) (string, error) {
	issuedAt := i.now()
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
	}

	i.mu.RLock()
	key := i.key
	i.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token issued by this issuer and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	i.mu.RLock()
	key := i.key
	i.mu.RUnlock()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Rotate swaps the signing key. Tokens signed with the previous key stop
// verifying; callers own the rollover policy.
func (i *Issuer) Rotate(key []byte) {
	i.mu.Lock()
	i.key = key
	i.mu.Unlock()
}
