package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy-000000"

func signHS256(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func validClaims() *idpClaims {
	now := time.Now()
	return &idpClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://idp.example.com",
			Subject:   "sub-1",
			Audience:  jwt.ClaimStrings{"pilgrim"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestNewJWTVerifier_Config(t *testing.T) {
	_, err := NewJWTVerifier(JWTConfig{Secret: testSecret})
	assert.Error(t, err, "issuer required")

	_, err = NewJWTVerifier(JWTConfig{Issuer: "x"})
	assert.Error(t, err, "key required")

	_, err = NewJWTVerifier(JWTConfig{Issuer: "x", Secret: "s", PublicKeyPath: "/k.pem"})
	assert.Error(t, err, "exclusive keys")
}

func TestJWTVerifier_Verify(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{
		Issuer:   "https://idp.example.com",
		Audience: "pilgrim",
		Secret:   testSecret,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *idpClaims)
		wantErr bool
	}{
		{"valid", func(*idpClaims) {}, false},
		{"wrong issuer", func(c *idpClaims) { c.Issuer = "https://evil.example.com" }, true},
		{"wrong audience", func(c *idpClaims) { c.Audience = jwt.ClaimStrings{"other"} }, true},
		{"expired", func(c *idpClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }, true},
		{"no expiry", func(c *idpClaims) { c.ExpiresAt = nil }, true},
		{"no subject", func(c *idpClaims) { c.Subject = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)

			identity, err := v.Verify(context.Background(), signHS256(t, claims))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sub-1", identity.Subject)
			assert.Equal(t, "ana@example.com", identity.Email)
		})
	}
}

func TestJWTVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Issuer: "https://idp.example.com", Secret: testSecret})
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims()).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
