package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

type fakeGitHub struct {
	mu       sync.Mutex
	tree     []sources.TreeEntry
	files    map[string]string
	raw      map[string]string
	status   int
	fetched  []string
	treeHits atomic.Int32
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/git/trees/HEAD"):
		f.treeHits.Add(1)
		if r.URL.Query().Get("recursive") != "1" {
			http.Error(w, "recursive missing", http.StatusBadRequest)
			return
		}
		if f.status != 0 {
			http.Error(w, `{"message":"Not Found"}`, f.status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tree": f.tree})
	case strings.Contains(r.URL.Path, "/contents/"):
		path := r.URL.Path[strings.Index(r.URL.Path, "/contents/")+len("/contents/"):]
		f.mu.Lock()
		f.fetched = append(f.fetched, path)
		f.mu.Unlock()
		if raw, ok := f.raw[path]; ok {
			_, _ = w.Write([]byte(raw))
			return
		}
		content, ok := f.files[path]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		enc := base64.StdEncoding.EncodeToString([]byte(content))
		// GitHub wraps base64 at 60 columns
		var wrapped strings.Builder
		for len(enc) > 60 {
			wrapped.WriteString(enc[:60] + "\n")
			enc = enc[60:]
		}
		wrapped.WriteString(enc)
		_ = json.NewEncoder(w).Encode(map[string]string{"encoding": "base64", "content": wrapped.String()})
	default:
		http.NotFound(w, r)
	}
}

func newTestSnapshotter(t *testing.T, f *fakeGitHub) *Snapshotter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewSnapshotter(NewClient(srv.URL, "", 5*time.Second), []string{"github.com"}, nil, nil)
}

func blob(path string) sources.TreeEntry {
	size := int64(10)
	return sources.TreeEntry{Path: path, Type: sources.EntryBlob, Size: &size}
}

func TestSnapshot_Format(t *testing.T) {
	f := &fakeGitHub{
		tree: []sources.TreeEntry{
			blob("README.md"),
			{Path: "src", Type: sources.EntryTree},
			blob("src/main.ts"),
			blob("src/util.ts"),
			blob("go.mod"),
		},
		files: map[string]string{
			"README.md":   "# Shop",
			"src/main.ts": "console.log('hi')",
		},
	}
	s := newTestSnapshotter(t, f)

	got, err := s.Snapshot(context.Background(), "https://github.com/acme/shop.git")
	require.NoError(t, err)

	want := "=== Repository: acme/shop ===\n\n=== File Tree ===\nREADME.md\nsrc/main.ts\nsrc/util.ts\ngo.mod\n" +
		"\n\n--- README.md ---\n# Shop" +
		"\n\n--- src/main.ts ---\nconsole.log('hi')"
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"README.md", "src/main.ts", "go.mod"}, f.fetched, "go.mod 404 is skipped")
}

func TestSnapshot_CapsFetchesAt30(t *testing.T) {
	f := &fakeGitHub{files: map[string]string{}}
	for i := 0; i < 40; i++ {
		p := fmt.Sprintf("routes/r%02d.js", i)
		f.tree = append(f.tree, blob(p))
		f.files[p] = "module.exports = {}"
	}
	s := newTestSnapshotter(t, f)

	got, err := s.Snapshot(context.Background(), "github.com/acme/api")
	require.NoError(t, err)
	require.Len(t, f.fetched, 30)
	assert.Equal(t, "routes/r00.js", f.fetched[0])
	assert.Equal(t, "routes/r29.js", f.fetched[29])
	assert.Contains(t, got, "routes/r39.js", "full tree is still listed")
	assert.NotContains(t, got, "--- routes/r30.js ---")
}

func TestSnapshot_TruncatesLargeFiles(t *testing.T) {
	big := strings.Repeat("a", 5000) + strings.Repeat("b", 7000)
	f := &fakeGitHub{
		tree:  []sources.TreeEntry{blob("package.json")},
		files: map[string]string{"package.json": big},
	}
	s := newTestSnapshotter(t, f)

	got, err := s.Snapshot(context.Background(), "github.com/acme/web")
	require.NoError(t, err)

	header := "--- package.json (truncated, 12000 chars) ---\n"
	i := strings.Index(got, header)
	require.GreaterOrEqual(t, i, 0)
	body := got[i+len(header):]
	assert.Equal(t, strings.Repeat("a", 5000)+"\n...[truncated]", body)
}

func TestSnapshot_TruncationCountsCharacters(t *testing.T) {
	s := NewSnapshotter(nil, nil, nil, nil)
	s.TruncateThreshold, s.TruncatePrefix = 4, 2
	assert.Equal(t, "--- x ---\nüüüü", s.section("x", "üüüü"))
	assert.Equal(t, "--- x (truncated, 5 chars) ---\nüü\n...[truncated]", s.section("x", "üüüüü"))
}

func TestSnapshot_PrefixFallsBackWithinThreshold(t *testing.T) {
	s := &Snapshotter{TruncateThreshold: 100}
	got := s.section("README.md", strings.Repeat("a", 200))
	assert.Equal(t, "--- README.md (truncated, 200 chars) ---\n"+strings.Repeat("a", 100)+"\n...[truncated]", got)

	s = &Snapshotter{TruncateThreshold: 100, TruncatePrefix: 300}
	assert.NotPanics(t, func() { s.section("README.md", strings.Repeat("b", 101)) })
}

func TestSnapshot_SkipsBadContent(t *testing.T) {
	f := &fakeGitHub{
		tree: []sources.TreeEntry{blob("main.go"), blob("server.go"), blob("app.go")},
		files: map[string]string{
			"app.go": "package main",
		},
		raw: map[string]string{
			"main.go":   `{"encoding":"none","content":""}`,
			"server.go": `{"encoding":"base64","content":"!!!"}`,
		},
	}
	s := newTestSnapshotter(t, f)

	got, err := s.Snapshot(context.Background(), "github.com/acme/svc")
	require.NoError(t, err)
	assert.NotContains(t, got, "--- main.go ---")
	assert.NotContains(t, got, "--- server.go ---")
	assert.Contains(t, got, "--- app.go ---\npackage main")
}

func TestSnapshot_TreeFailure(t *testing.T) {
	f := &fakeGitHub{status: http.StatusNotFound}
	s := newTestSnapshotter(t, f)

	_, err := s.Snapshot(context.Background(), "github.com/acme/private")
	require.ErrorIs(t, err, sources.ErrUpstreamUnavailable)
	var ue *sources.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Contains(t, ue.Body, "Not Found")
	assert.Empty(t, f.fetched)
}

func TestSnapshot_InvalidReference(t *testing.T) {
	f := &fakeGitHub{}
	s := newTestSnapshotter(t, f)

	_, err := s.Snapshot(context.Background(), "https://bitbucket.org/acme/shop")
	assert.ErrorIs(t, err, sources.ErrInvalidReference)
	assert.Zero(t, f.treeHits.Load())
}

func TestCachedSnapshotter(t *testing.T) {
	f := &fakeGitHub{tree: []sources.TreeEntry{blob("README.md")}, files: map[string]string{"README.md": "hi"}}
	c := NewCachedSnapshotter(newTestSnapshotter(t, f), 8, time.Minute)

	a, err := c.Snapshot(context.Background(), "https://github.com/acme/shop")
	require.NoError(t, err)
	b, err := c.Snapshot(context.Background(), "github.com/ACME/shop.git")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.EqualValues(t, 1, f.treeHits.Load())

	_, err = c.Snapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, sources.ErrInvalidReference)
}
