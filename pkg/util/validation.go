package util

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	// EmailMaxLength is the maximum accepted length of an email address
	EmailMaxLength = 254
	// NameMaxLength is the maximum accepted length of a display name
	NameMaxLength = 100
)

// ValidateEmail validates that a string is a plausible email address.
// Rules:
// - Must not be empty after trimming
// - Maximum length is 254 characters
// - Must match local@domain.tld shape
func ValidateEmail(value string) error {
	value = strings.TrimSpace(value)

	if value == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(value) > EmailMaxLength {
		return fmt.Errorf("email must be no more than %d characters", EmailMaxLength)
	}

	if !emailRegex.MatchString(value) {
		return fmt.Errorf("email must be a valid address")
	}

	return nil
}

// IsValidEmail checks if a string is a valid email address without returning an error.
func IsValidEmail(value string) bool {
	return ValidateEmail(value) == nil
}

// ValidateName validates a user or organization display name.
func ValidateName(value string) error {
	value = strings.TrimSpace(value)

	if value == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if len(value) > NameMaxLength {
		return fmt.Errorf("name must be no more than %d characters", NameMaxLength)
	}

	return nil
}
