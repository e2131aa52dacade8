package validate

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email format")

// RFC 5321 length limits.
const (
	maxEmailLength     = 254
	maxEmailLocalPart  = 64
	maxEmailDomainPart = 255
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email normalizes and validates a contact email address. The address is
// trimmed and lowercased before validation; the normalized form is what gets
// stored on profiles.
func Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmpty
	}
	if len(email) > maxEmailLength {
		return "", ErrStringTooLong
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	if len(local) > maxEmailLocalPart {
		return "", ErrStringTooLong
	}
	if len(domain) > maxEmailDomainPart {
		return "", ErrStringTooLong
	}
	return email, nil
}
