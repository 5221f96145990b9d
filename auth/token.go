// Package auth covers the hub's boundary with the external identity
// service: validating the JWT it issues at login. The hub never checks
// credentials itself.
package auth

import (
	"time"

	"chat-hub/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload the login service signs into its tokens.
// Identity is the display name the connection will register under.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// TokenValidator checks signature and expiry of tokens presented at the
// websocket handshake. The secret is shared with the login service and
// injected from configuration, never hardcoded.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) TokenValidator {
	return TokenValidator{secret: []byte(secret)}
}

func (v TokenValidator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken creates a signed JWT the way the login service does.
// The hub only validates tokens; this exists for tests and local tooling.
func GenerateToken(secret, identity string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-hub",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
