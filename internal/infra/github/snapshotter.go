package github

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

const (
	DefaultMaxFiles          = 30
	DefaultTruncateThreshold = 10000
	DefaultTruncatePrefix    = 5000
)

// Snapshotter implements sources.Snapshotter against the GitHub REST API.
type Snapshotter struct {
	Client            *Client
	Hosts             []string
	Rules             sources.RuleSet
	MaxFiles          int
	TruncateThreshold int
	TruncatePrefix    int
	Logger            *zap.Logger
}

func NewSnapshotter(client *Client, hosts []string, rules sources.RuleSet, logger *zap.Logger) *Snapshotter {
	if rules == nil {
		rules = sources.DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		Client:            client,
		Hosts:             hosts,
		Rules:             rules,
		MaxFiles:          DefaultMaxFiles,
		TruncateThreshold: DefaultTruncateThreshold,
		TruncatePrefix:    DefaultTruncatePrefix,
		Logger:            logger,
	}
}

// Snapshot lists the repository, fetches the interesting files one at a time
// and renders everything as a single text blob. Only a failed listing is
// fatal; individual files that cannot be fetched are left out.
func (s *Snapshotter) Snapshot(ctx context.Context, repoRef string) (string, error) {
	ref, err := ParseReference(repoRef, s.Hosts)
	if err != nil {
		return "", err
	}

	tree, err := s.Client.Tree(ctx, ref)
	if err != nil {
		return "", err
	}

	candidates := s.selectFiles(tree)
	log := s.Logger.With(zap.String("repo", ref.FullName()))
	log.Debug("repository listed", zap.Int("entries", len(tree)), zap.Int("candidates", len(candidates)))

	var paths []string
	for _, e := range tree {
		if e.Type == sources.EntryBlob {
			paths = append(paths, e.Path)
		}
	}

	sections := []string{fmt.Sprintf("=== Repository: %s ===\n\n=== File Tree ===\n%s\n",
		ref.FullName(), strings.Join(paths, "\n"))}

	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := s.Client.File(ctx, ref, path)
		if err != nil {
			log.Debug("skipping file", zap.String("path", path), zap.Error(err))
			continue
		}
		sections = append(sections, s.section(path, content))
	}

	return strings.Join(sections, "\n\n"), nil
}

// selectFiles keeps matching blobs in listing order, up to MaxFiles.
func (s *Snapshotter) selectFiles(tree []sources.TreeEntry) []string {
	limit := s.MaxFiles
	if limit <= 0 {
		limit = DefaultMaxFiles
	}
	var out []string
	for _, e := range tree {
		if e.Type != sources.EntryBlob {
			continue
		}
		if _, ok := s.Rules.Match(e.Path); !ok {
			continue
		}
		out = append(out, e.Path)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *Snapshotter) section(path, content string) string {
	threshold, prefix := s.TruncateThreshold, s.TruncatePrefix
	if threshold <= 0 {
		threshold = DefaultTruncateThreshold
	}
	if prefix <= 0 || prefix > threshold {
		prefix = min(DefaultTruncatePrefix, threshold)
	}

	n := utf8.RuneCountInString(content)
	if n <= threshold {
		return fmt.Sprintf("--- %s ---\n%s", path, content)
	}
	return fmt.Sprintf("--- %s (truncated, %d chars) ---\n%s\n...[truncated]", path, n, string([]rune(content)[:prefix]))
}
