// Package security provides session tokens, sealed cookies and secure
// random values.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidSession is returned for tokens that fail signature, expiry or
// shape checks.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	User user.SessionUser `json:"user"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs an HS256 session token for u valid for ttl.
func IssueSessionToken(u user.SessionUser, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("session secret is not configured")
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        GenerateULID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates a session token and returns its user.
func ParseSessionToken(tokenString, secret string) (*user.SessionUser, error) {
	if tokenString == "" || secret == "" {
		return nil, ErrInvalidSession
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || claims.User.ID == "" {
		return nil, ErrInvalidSession
	}
	return &claims.User, nil
}
