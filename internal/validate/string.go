// Package validate normalizes and checks user-supplied input before it
// reaches storage: profile text, upload metadata, and external links. Text
// that will be rendered by clients is HTML-escaped here so stored values are
// safe to echo back.
package validate

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints bounds a free-text field. Zero-valued limits are
// disabled. Lengths count runes, not bytes.
type StringConstraints struct {
	MinLength      int
	MaxLength      int
	AllowedPattern *regexp.Regexp
	AllowEmpty     bool
}

// String trims and validates a string against the constraints, returning the
// trimmed value.
func String(s string, constraints StringConstraints) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	length := utf8.RuneCountInString(s)
	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}
	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}
	return s, nil
}

// SanitizeString validates then HTML-escapes a string destined for display.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return html.EscapeString(validated), nil
}

var displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _\-\.]+$`)

// DisplayName validates a profile display name: 1 to 100 characters drawn
// from letters, digits, spaces, dash, underscore, and period.
func DisplayName(name string) (string, error) {
	return SanitizeString(name, StringConstraints{
		MinLength:      1,
		MaxLength:      100,
		AllowedPattern: displayNamePattern,
	})
}

// Headline validates an optional profile headline of up to 200 characters.
func Headline(headline string) (string, error) {
	return SanitizeString(headline, StringConstraints{
		MaxLength:  200,
		AllowEmpty: true,
	})
}

// Caption validates an optional item caption of up to 2000 characters.
func Caption(caption string) (string, error) {
	return SanitizeString(caption, StringConstraints{
		MaxLength:  2000,
		AllowEmpty: true,
	})
}

// Notes validates optional interview notes of up to 5000 characters.
func Notes(notes string) (string, error) {
	return SanitizeString(notes, StringConstraints{
		MaxLength:  5000,
		AllowEmpty: true,
	})
}
