// internal/auth/session.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned for any API key that fails verification.
var ErrInvalidKey = errors.New("invalid api key")

// Claims are carried by gateway API keys.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RoleClient may create, read, patch and subscribe to rooms.
const RoleClient = "client"

// Issuer signs and verifies gateway API keys with a shared HS256 secret.
type Issuer struct {
	secret []byte
	// ttl of 0 => keys never expire.
	ttl time.Duration
}

// NewIssuer returns an Issuer for secret.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty jwt secret")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// CreateAPIKey signs a key for subject (usually an app or deployment name).
func (i *Issuer) CreateAPIKey(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Authenticate verifies a key and returns its claims.
func (i *Issuer) Authenticate(tokenString string) (*Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if !t.Valid {
		return nil, ErrInvalidKey
	}
	if claims.Role != RoleClient {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidKey, claims.Role)
	}
	return &claims, nil
}
