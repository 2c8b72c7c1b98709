package auth

import (
	"time"
)

// AccessClaims are the claims carried by a bearer token.
// v4.local tokens are encrypted, so clients cannot read them without the key.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Nombre string `json:"nombre"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// ExpiresIn is the remaining lifetime at now, floored at zero.
func (c *AccessClaims) ExpiresIn(now time.Time) time.Duration {
	return max(c.Expiration.Sub(now), 0)
}
