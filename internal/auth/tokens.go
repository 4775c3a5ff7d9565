package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/pilgrimapp/pilgrim-server/internal/id"
)

const (
	tokenIssuer   = "pilgrim-server"
	tokenAudience = "pilgrim-client"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
	keyHexSize   = 64 // 32 bytes as hex string
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier turns a bearer token into the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenService handles PASETO token generation and verification.
// It is the verifier for locally issued tokens (development and tests).
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
}

// NewTokenService creates a new token service with the given configuration.
func NewTokenService(keyHex string, accessDuration time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        key,
		accessTokenDuration: accessDuration,
	}, nil
}

// GenerateAccessToken creates a PASETO v4.local access token for subject.
func (s *TokenService) GenerateAccessToken(subject, email string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(subject)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	if email != "" {
		//nolint:errcheck // Token.Set only errors on invalid types, which we control
		_ = token.Set("email", email)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken verifies and parses a PASETO access token.
// Returns the claims if valid, or an error if they're invalid or expired.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &claims, nil
}

// Verify implements Verifier.
func (s *TokenService) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := s.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	return claims.Identity(), nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
