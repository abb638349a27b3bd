package authorization

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix marks every raw API key
const KeyPrefix = "flk_"

const (
	keySecretBytes = 24 // 48 hex characters
	displayLength  = 8
)

// GenerateKey creates a new raw API key and returns it with its display
// prefix and storage hash. The raw key is shown once and never stored.
func GenerateKey() (raw, prefix, hash string, err error) {
	buf := make([]byte, keySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("failed to generate api key: %w", err)
	}

	raw = KeyPrefix + hex.EncodeToString(buf)
	return raw, DisplayPrefix(raw), HashKey(raw), nil
}

// HashKey returns the hex SHA-256 of a raw key
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix returns the leading characters of a raw key used to identify it in listings
func DisplayPrefix(raw string) string {
	if len(raw) <= displayLength {
		return raw
	}
	return raw[:displayLength]
}

// WellFormed reports whether raw looks like a key issued by GenerateKey
func WellFormed(raw string) bool {
	secret, ok := strings.CutPrefix(raw, KeyPrefix)
	if !ok || len(secret) != keySecretBytes*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}
