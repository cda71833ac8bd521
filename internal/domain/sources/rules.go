package sources

import (
	"fmt"
	"regexp"
)

// PathRule decides whether a repository path is worth sending to the model.
type PathRule interface {
	Name() string
	Match(path string) bool
}

type regexRule struct {
	name string
	rx   *regexp.Regexp
}

func (r regexRule) Name() string           { return r.name }
func (r regexRule) Match(path string) bool { return r.rx.MatchString(path) }

// RegexRule builds a case-insensitive rule from a pattern.
func RegexRule(name, pattern string) (PathRule, error) {
	rx, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("path rule %s: %w", name, err)
	}
	return regexRule{name: name, rx: rx}, nil
}

func mustRule(name, pattern string) PathRule {
	r, err := RegexRule(name, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// RuleSet is an ordered list of rules. Order documents intent only; a path is
// selected if any rule matches.
type RuleSet []PathRule

// Match returns the first rule that accepts path.
func (rs RuleSet) Match(path string) (PathRule, bool) {
	for _, r := range rs {
		if r.Match(path) {
			return r, true
		}
	}
	return nil, false
}

// With returns a copy of the set with extra rules appended.
func (rs RuleSet) With(extra ...PathRule) RuleSet {
	out := make(RuleSet, 0, len(rs)+len(extra))
	out = append(out, rs...)
	return append(out, extra...)
}

// DefaultRules covers root manifests, entry points, route/API trees and
// per-ecosystem dependency manifests.
func DefaultRules() RuleSet {
	return RuleSet{
		mustRule("readme", `^readme\.md$`),
		mustRule("package-json", `^package\.json$`),
		mustRule("tsconfig", `^tsconfig\.json$`),
		mustRule("docker-compose", `^docker-compose\.ya?ml$`),
		mustRule("dockerfile", `^dockerfile$`),
		mustRule("env-example", `^\.env\.example$`),
		mustRule("src-app", `^src/app\.(tsx?|jsx?)$`),
		mustRule("src-main", `^src/main\.(tsx?|jsx?)$`),
		mustRule("src-index", `^src/index\.(tsx?|jsx?)$`),
		mustRule("root-app", `^app\.(tsx?|jsx?|py|go|rb)$`),
		mustRule("root-main", `^main\.(tsx?|jsx?|py|go|rb)$`),
		mustRule("root-server", `^server\.(tsx?|jsx?|py|go|rb)$`),
		mustRule("routes", `^routes/`),
		mustRule("api", `^api/`),
		mustRule("src-routes", `^src/routes/`),
		mustRule("src-pages", `^src/pages/`),
		mustRule("component-index", `^src/components/.*index\.(tsx?|jsx?)$`),
		mustRule("config-dir", `^config/`),
		mustRule("requirements-txt", `requirements\.txt$`),
		mustRule("go-mod", `go\.mod$`),
		mustRule("cargo-toml", `Cargo\.toml$`),
		mustRule("pyproject-toml", `pyproject\.toml$`),
	}
}

// ParseRules compiles extra patterns from configuration.
func ParseRules(patterns []string) (RuleSet, error) {
	out := make(RuleSet, 0, len(patterns))
	for i, p := range patterns {
		r, err := RegexRule(fmt.Sprintf("extra-%d", i+1), p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
