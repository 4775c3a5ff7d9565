package auth

import (
	"time"
)

// Identity is the authenticated caller as far as the rest of the server cares:
// a stable subject and, when the identity provider shares it, an email.
type Identity struct {
	Subject string
	Email   string
}

// AccessClaims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type AccessClaims struct {
	Email string `json:"email"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity returns the caller identity carried by the claims.
func (c *AccessClaims) Identity() *Identity {
	return &Identity{Subject: c.Subject, Email: c.Email}
}
