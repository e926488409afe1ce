// Package security handles the client-side view of session tokens: claim
// extraction from access JWTs without verification. The client holds no
// signing keys; the backend is the authority, so claims are used only to fill
// gaps in response payloads (e.g. a missing user id) and for display.
package security

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token cannot be parsed as a JWT.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what the client reads out of an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// ParseClaims decodes the token's claims without signature verification.
func ParseClaims(token string) (*TokenClaims, error) {
	var claims TokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// UserIDFromToken extracts a user id from the token's user_id or sub claim.
// Returns "" for an unparseable token or one carrying neither.
func UserIDFromToken(token string) string {
	claims, err := ParseClaims(token)
	if err != nil {
		return ""
	}
	if claims.UserID != "" {
		return claims.UserID
	}
	return claims.Subject
}
