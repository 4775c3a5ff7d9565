// Package auth provides authentication and authorization functionality.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64
)

// LoadOrGenerateKey loads or generates the PASETO v4 symmetric key for locally
// issued access tokens. The key lives in <dataPath>/auth.key, hex-encoded.
// If the file doesn't exist, a new key is generated and saved.
// Returns the hex form accepted by NewTokenService.
func LoadOrGenerateKey(dataPath string) (string, error) {
	keyPath := filepath.Join(dataPath, "auth.key")

	// Try to load existing key.
	//#nosec G304 -- Auth key path is derived from the configured data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))

		// Validate hex format (should be 64 hex chars = 32 bytes).
		if len(keyHex) != keyHexLength {
			return "", fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
		}

		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("invalid auth key format: not valid hex: %w", err)
		}

		return keyHex, nil
	}

	// Generate new key (32 bytes = 256 bits for PASETO v4).
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}

	// Encode as hex for storage.
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	// Save key to file with restricted permissions.
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save auth key: %w", err)
	}

	return keyHex, nil
}
