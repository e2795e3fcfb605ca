// Package token signs and verifies LineGate's own session tokens.
// The LINE provider's ID tokens are decoded elsewhere; this codec only
// ever runs against keys it owns.
package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload carried by a LineGate session token.
type SessionClaims struct {
	UserID string
	Scopes []string
}

// Codec encodes and decodes signed session tokens with a fixed secret,
// algorithm, and lifetime. Immutable after construction.
type Codec struct {
	secret        []byte
	method        jwt.SigningMethod
	expireMinutes int
}

// NewCodec creates a Codec. Algorithm names follow JOSE ("HS256",
// "HS384", "HS512"); unknown names fail fast at startup rather than at
// first use.
func NewCodec(secret, algorithm string, expireMinutes int) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %s is not HMAC-based", algorithm)
	}
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	if expireMinutes <= 0 {
		expireMinutes = 120
	}
	return &Codec{
		secret:        []byte(secret),
		method:        method,
		expireMinutes: expireMinutes,
	}, nil
}

// CreateExpiry returns the absolute expiry for a token minted now.
func (c *Codec) CreateExpiry() time.Time {
	return time.Now().Add(time.Duration(c.expireMinutes) * time.Minute)
}

// Encode signs a session token for the given claims.
func (c *Codec) Encode(claims SessionClaims) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(c.method, jwt.MapClaims{
		"sub":    claims.UserID,
		"scopes": claims.Scopes,
		"iat":    now.Unix(),
		"exp":    c.CreateExpiry().Unix(),
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// Decode verifies a session token and returns its claims.
func (c *Codec) Decode(tokenString string) (*SessionClaims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	var scopes []string
	if raw, ok := claims["scopes"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
	}

	return &SessionClaims{UserID: sub, Scopes: scopes}, nil
}

// RequireScopes checks that the claims carry every required scope.
func (c *SessionClaims) RequireScopes(required ...string) error {
	for _, scope := range required {
		if !slices.Contains(c.Scopes, scope) {
			return fmt.Errorf("%w: missing scope %q", ErrInsufficientScope, scope)
		}
	}
	return nil
}
