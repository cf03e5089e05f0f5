// Package auth issues and verifies the bearer tokens of the admin API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("token is invalid")

const tokenDuration = 12 * time.Hour

// TokenPayload is the verified content of an admin token.
type TokenPayload struct {
	Login string `json:"login"`
	jwt.RegisteredClaims
}

// AuthToken signs and verifies admin tokens with a shared HMAC key.
type AuthToken struct {
	key []byte
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte) *AuthToken {
	return &AuthToken{key: key}
}

// CreateToken issues a signed token for the admin login.
func (at *AuthToken) CreateToken(login string) (string, error) {
	now := time.Now()
	claims := TokenPayload{
		Login: login,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(at.key)
}

// VerifyToken parses and validates a token string.
func (at *AuthToken) VerifyToken(tokenString string) (*TokenPayload, error) {
	payload := TokenPayload{}

	token, err := jwt.ParseWithClaims(tokenString, &payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &payload, nil
}
