package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the Entra ID access token claims reported for a session.
type TokenClaims struct {
	AppDisplayName string   `json:"app_displayname"`
	Roles          []string `json:"roles"`
	jwt.RegisteredClaims
}

// ParseTokenClaims reads the claims of an access token without verifying
// it; the token was just issued to us by azidentity.
func ParseTokenClaims(token string) (*TokenClaims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &TokenClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}
	return claims, nil
}

// Expiry returns the exp claim, or the zero time.
func (c *TokenClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
