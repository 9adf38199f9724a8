package utils

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey hashes an API key with bcrypt so the plain key need not be
// stored in configuration.
func HashAPIKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckAPIKey checks a presented key against a bcrypt hash.
func CheckAPIKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// SanitizeInput escapes user-supplied text before it is written to logs.
func SanitizeInput(value string) string {
	return html.EscapeString(value)
}

// NormalizeOwnerName trims surrounding whitespace from an owner name.
func NormalizeOwnerName(name string) string {
	return strings.TrimSpace(name)
}

// ParseAccountID parses an account id taken from a path or argument.
func ParseAccountID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", raw)
	}
	return id, nil
}
