package utils

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

// SanitizeString removes control characters except tab and newline
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// ValidateTextField reports whether s has at least minLength characters after trimming
func ValidateTextField(s string, minLength int) bool {
	return len([]rune(strings.TrimSpace(s))) >= minLength
}
