package validate

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URL validation errors
var (
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrDisallowedScheme = errors.New("URL scheme not allowed")
	ErrDisallowedDomain = errors.New("URL domain not allowed")
	ErrSSRFRisk         = errors.New("URL poses SSRF risk")
)

const maxURLLength = 2048

// URLConstraints defines validation constraints for URLs.
type URLConstraints struct {
	AllowedSchemes []string
	// AllowedDomains restricts the hostname to these domains and their
	// subdomains. Empty allows any public domain.
	AllowedDomains []string
	// BlockPrivate rejects hostnames that resolve to loopback, link-local,
	// or private addresses.
	BlockPrivate bool
}

// URL validates a URL against the given constraints and returns the trimmed
// URL string.
func URL(urlStr string, constraints URLConstraints) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", ErrEmpty
	}
	if len(urlStr) > maxURLLength {
		return "", fmt.Errorf("%w: URL exceeds %d characters", ErrStringTooLong, maxURLLength)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if len(constraints.AllowedSchemes) > 0 && !contains(constraints.AllowedSchemes, parsed.Scheme) {
		return "", fmt.Errorf("%w: got %q, allowed: %v",
			ErrDisallowedScheme, parsed.Scheme, constraints.AllowedSchemes)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	if len(constraints.AllowedDomains) > 0 {
		allowed := false
		for _, domain := range constraints.AllowedDomains {
			if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: %q not in allowlist", ErrDisallowedDomain, hostname)
		}
	}

	if constraints.BlockPrivate {
		if err := checkSSRF(hostname); err != nil {
			return "", err
		}
	}

	return urlStr, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// checkSSRF rejects hostnames that point into our own network: localhost,
// private ranges, and link-local addresses.
func checkSSRF(hostname string) error {
	lower := strings.ToLower(hostname)
	if lower == "localhost" || lower == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost not allowed", ErrSSRFRisk)
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Unresolvable hostnames pass; a temporary DNS failure must not
		// reject a legitimate domain
		return nil
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return fmt.Errorf("%w: private IP address %s", ErrSSRFRisk, ip.String())
		}
	}
	return nil
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}

// MeetingURL validates an external video-call link for an interview. HTTPS
// only, SSRF-checked.
func MeetingURL(urlStr string) (string, error) {
	return URL(urlStr, URLConstraints{
		AllowedSchemes: []string{"https"},
		BlockPrivate:   true,
	})
}

// MediaURL validates a link to externally hosted media. HTTP is tolerated,
// private addresses are not.
func MediaURL(urlStr string) (string, error) {
	return URL(urlStr, URLConstraints{
		AllowedSchemes: []string{"https", "http"},
		BlockPrivate:   true,
	})
}
