package validator

import (
	"regexp"
	"strings"
)

// hubKeyRegexp defines the valid format for hub keys:
// lowercase letters, numbers, underscores, and hyphens, 1-64 characters.
var hubKeyRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateHubKey checks if the given key is a valid hub key.
func ValidateHubKey(key string) bool {
	return hubKeyRegexp.MatchString(strings.TrimSpace(key))
}

// SanitizeHubKey trims whitespace and validates the hub key.
// Returns the sanitized key and a boolean indicating if it's valid.
func SanitizeHubKey(key string) (string, bool) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", false
	}
	return trimmed, hubKeyRegexp.MatchString(trimmed)
}
