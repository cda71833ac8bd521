package middleware

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

const (
	maxDiagramTypes  = 10
	maxDiagramLabel  = 64
	maxSourceURLSize = 2048
)

// ValidateSourceURL checks a user supplied http(s) URL and refuses local or
// private addresses.
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > maxSourceURLSize {
		return fmt.Errorf("URL too long")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("localhost/internal IPs are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
		if ip.IsPrivate() {
			return fmt.Errorf("private IP ranges are not allowed")
		}
	}
	return nil
}

// ValidateProjectID checks the id is a UUID
func ValidateProjectID(id string) error { return validateUUID("project", id) }

// ValidateRunID checks a run id, which is a UUID as well
func ValidateRunID(id string) error { return validateUUID("run", id) }

func validateUUID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid %s ID format", kind)
	}
	return nil
}

var labelPattern = regexp.MustCompile(`^[\p{L}\p{N} ._/()&-]+$`)

// ValidateDiagramTypes sanitizes the requested diagram labels. Labels are
// positional, so a blank one is an error rather than skipped.
func ValidateDiagramTypes(types []string) ([]string, error) {
	if len(types) > maxDiagramTypes {
		return nil, fmt.Errorf("at most %d diagram types", maxDiagramTypes)
	}
	out := make([]string, 0, len(types))
	for i, t := range types {
		t = SanitizeString(t)
		if t == "" {
			return nil, fmt.Errorf("diagram type %d is empty", i+1)
		}
		if len(t) > maxDiagramLabel || !labelPattern.MatchString(t) {
			return nil, fmt.Errorf("invalid diagram type %q", t)
		}
		out = append(out, t)
	}
	return out, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
