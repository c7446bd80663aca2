package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked means the account's token version moved on.
	ErrTokenRevoked = errors.New("token version invalidated")
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims are carried by both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Version int    `json:"ver"`
	Kind    string `json:"kind"`
}

func sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func parse(tokenString string, secret []byte, kind string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func newClaims(userID, email string, version int, kind string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   email,
		Version: version,
		Kind:    kind,
	}
}
