// Package token validates bearer tokens presented by regulatory principals.
// The identity-verification provider and authority operators obtain tokens
// out of band; the engine only checks the signature and extracts the subject
// principal key. Authorization itself always happens against the live
// authority registry, never against token contents.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the validated principal identity.
type Claims struct {
	Principal string
	JTI       string
}

// Validator verifies HMAC-signed principal tokens.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and validates a bearer token, returning the principal claims.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	jti, _ := claims["jti"].(string)
	return &Claims{Principal: sub, JTI: jti}, nil
}

// Issue mints a principal token. Used by tests and local development; in
// production tokens come from the operator's identity provider.
func (v *Validator) Issue(principal string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": principal,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return t.SignedString(v.signingKey)
}
