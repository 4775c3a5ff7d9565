// Package id generates prefixed identifiers for tokens and requests.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Request IDs only need to be unique within a log window, so they are shorter
// and avoid '-' and '_' to stay easy to grep.
const (
	requestAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	requestIDSize   = 12
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "token-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// RequestID returns a short lowercase ID for correlating the log lines of one request.
func RequestID() string {
	id, err := gonanoid.Generate(requestAlphabet, requestIDSize)
	if err != nil {
		return "req-unknown"
	}
	return "req-" + id
}

// Prefix returns the prefix of an ID made by Generate, or "" if it has none.
func Prefix(id string) string {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok {
		return ""
	}
	return prefix
}
