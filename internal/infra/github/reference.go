package github

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

var namePart = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseReference parses <host>/<owner>/<repo>[.git] with an optional scheme
// and trailing path (e.g. /tree/main). When hosts is non-empty the host must
// be one of them.
func ParseReference(raw string, hosts []string) (sources.Reference, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return sources.Reference{}, fmt.Errorf("%w: empty", sources.ErrInvalidReference)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return sources.Reference{}, fmt.Errorf("%w: %q", sources.ErrInvalidReference, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return sources.Reference{}, fmt.Errorf("%w: %q has no host", sources.ErrInvalidReference, raw)
	}
	if len(hosts) > 0 && !slices.Contains(hosts, host) {
		return sources.Reference{}, fmt.Errorf("%w: unsupported host %q", sources.ErrInvalidReference, host)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return sources.Reference{}, fmt.Errorf("%w: %q", sources.ErrInvalidReference, raw)
	}
	owner := segs[0]
	repo := strings.TrimSuffix(segs[1], ".git")
	if !namePart.MatchString(owner) || !namePart.MatchString(repo) {
		return sources.Reference{}, fmt.Errorf("%w: %q", sources.ErrInvalidReference, raw)
	}
	return sources.Reference{Host: host, Owner: owner, Repo: repo}, nil
}
