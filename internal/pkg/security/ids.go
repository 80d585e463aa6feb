// Package security validates identifiers that end up in file names, store
// keys and log lines.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Identifier limits.
const (
	MinIDLength = 1
	MaxIDLength = 128
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// idRegex matches valid identifiers: alphanumeric, dot, hyphen, underscore.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateID validates a run, job or fold identifier.
// Requirements: Required, 1-128 chars, alphanumeric + dot + hyphen +
// underscore, must start with alphanumeric.
func ValidateID(field, id string) error {
	if id == "" {
		return &ValidationError{
			Field:      field,
			Constraint: "required",
		}
	}

	if len(id) > MaxIDLength {
		return &ValidationError{
			Field:      field,
			Value:      len(id),
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxIDLength),
		}
	}

	if !idRegex.MatchString(id) {
		return &ValidationError{
			Field:      field,
			Value:      SanitizeForLog(id),
			Constraint: "must contain only alphanumeric characters, dots, hyphens, and underscores, and start with alphanumeric",
		}
	}

	return nil
}

// SanitizeForLog escapes control characters and truncates s to 200
// characters so that untrusted input cannot forge log lines.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes a string for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch {
		case r == '\n':
			b.WriteString("\\n")
		case r == '\r':
			b.WriteString("\\r")
		case r == '\t':
			b.WriteString("\\t")
		case r < 0x20 || r == 0x7f:
			// Drop other control characters
			continue
		default:
			b.WriteRune(r)
		}
		count++
	}

	return b.String()
}
