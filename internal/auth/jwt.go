package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig describes how identity-provider tokens are checked.
// Exactly one of Secret (HS256) or PublicKeyPath (RS256, PEM) is set.
type JWTConfig struct {
	Issuer        string
	Audience      string
	Secret        string
	PublicKeyPath string
}

// idpClaims are the claims read from identity-provider tokens.
type idpClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies tokens minted by an external identity provider.
type JWTVerifier struct {
	cfg     JWTConfig
	method  jwt.SigningMethod
	hmacKey []byte
	rsaKey  *rsa.PublicKey
}

// NewJWTVerifier validates cfg and loads the verification key.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}

	v := &JWTVerifier{cfg: cfg}
	switch {
	case cfg.Secret != "" && cfg.PublicKeyPath != "":
		return nil, fmt.Errorf("jwt secret and public key are mutually exclusive")
	case cfg.Secret != "":
		v.method = jwt.SigningMethodHS256
		v.hmacKey = []byte(cfg.Secret)
	case cfg.PublicKeyPath != "":
		//#nosec G304 -- Key path comes from operator configuration
		pem, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read jwt public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.method = jwt.SigningMethodRS256
		v.rsaKey = key
	default:
		return nil, fmt.Errorf("jwt secret or public key is required")
	}
	return v, nil
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	claims := &idpClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if token.Method.Alg() != v.method.Alg() {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			if v.rsaKey != nil {
				return v.rsaKey, nil
			}
			return v.hmacKey, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
