package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

func TestParseReference(t *testing.T) {
	hosts := []string{"github.com"}
	ok := map[string]sources.Reference{
		"https://github.com/acme/shop":             {Host: "github.com", Owner: "acme", Repo: "shop"},
		"https://github.com/acme/shop.git":         {Host: "github.com", Owner: "acme", Repo: "shop"},
		"github.com/acme/shop":                     {Host: "github.com", Owner: "acme", Repo: "shop"},
		"http://www.github.com/acme/shop/":         {Host: "github.com", Owner: "acme", Repo: "shop"},
		"https://github.com/acme/shop/tree/main":   {Host: "github.com", Owner: "acme", Repo: "shop"},
		"  https://GitHub.com/Acme/my.repo-1.git ": {Host: "github.com", Owner: "Acme", Repo: "my.repo-1"},
	}
	for raw, want := range ok {
		got, err := ParseReference(raw, hosts)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	bad := []string{
		"",
		"https://github.com/acme",
		"https://github.com/",
		"https://gitlab.com/acme/shop",
		"not a url",
		"https://github.com/acme/.git",
		"https://github.com/ac me/shop",
	}
	for _, raw := range bad {
		_, err := ParseReference(raw, hosts)
		assert.ErrorIs(t, err, sources.ErrInvalidReference, raw)
	}
}

func TestParseReference_AnyHost(t *testing.T) {
	got, err := ParseReference("git.example.org/team/svc", nil)
	require.NoError(t, err)
	assert.Equal(t, "team/svc", got.FullName())
}
