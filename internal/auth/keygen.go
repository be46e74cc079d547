package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Context keys look like user_<32 hex chars>, carrying 128 random bits.
const (
	ContextKeyPrefix    = "user_"
	contextKeySecretLen = 16
)

var contextKeyRegex = regexp.MustCompile(`^user_[a-f0-9]{32}$`)

// GenerateContextKey returns a fresh, unguessable context key.
func GenerateContextKey() (string, error) {
	b := make([]byte, contextKeySecretLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate context key: %w", err)
	}
	return ContextKeyPrefix + hex.EncodeToString(b), nil
}

// ValidContextKeyFormat reports whether key has the shape produced by GenerateContextKey.
func ValidContextKeyFormat(key string) bool {
	return contextKeyRegex.MatchString(key)
}
