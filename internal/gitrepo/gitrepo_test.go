package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadenpxrk/dumpfs/internal/logger"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url   string
		host  string
		owner string
		name  string
	}{
		{"https://github.com/username/repo", "github.com", "username", "repo"},
		{"https://github.com/username/repo.git", "github.com", "username", "repo"},
		{"https://www.github.com/username/repo/", "github.com", "username", "repo"},
		{"git@github.com:username/repo.git", "github.com", "username", "repo"},
		{"https://gitlab.com/group/sub/repo", "gitlab.com", "group/sub", "repo"},
		{"git@gitlab.com:username/repo", "gitlab.com", "username", "repo"},
		{"https://bitbucket.org/username/repo.git", "bitbucket.org", "username", "repo"},
		{"https://git.example.com/username/repo", "git.example.com", "username", "repo"},
		{"git@git.example.com:username/repo.git", "git.example.com", "username", "repo"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			r, err := Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, Repo{URL: tt.url, Host: tt.host, Owner: tt.owner, Name: tt.name}, r)
			assert.True(t, IsURL(tt.url))
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{
		"https://github.com",
		"https://github.com/username",
		"git@github.com",
		"/path/to/local/directory",
		"username/repo",
		"",
		"https://github.com/../../../tmp/victim/repo",
		"https://github.com/me/..",
		"https://github.com/./repo",
		"https://github.com/me/%2e%2e/repo",
		"git@github.com:../../tmp/repo.git",
		"git@github.com:me/..",
		"git@..:me/repo.git",
	} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
		assert.False(t, IsURL(raw))
	}
}

func TestCachePath(t *testing.T) {
	base := filepath.FromSlash("/cache/dumpfs")
	r, _ := Parse("https://github.com/me/tool")
	assert.Equal(t, filepath.Join(base, "github", "me", "tool"), r.CachePath(base))

	r, _ = Parse("https://gitlab.com/group/sub/tool")
	assert.Equal(t, filepath.Join(base, "gitlab", "group", "sub", "tool"), r.CachePath(base))

	r, _ = Parse("git@example.com:me/tool.git")
	assert.Equal(t, filepath.Join(base, "git", "example.com", "me", "tool"), r.CachePath(base))
	assert.Equal(t, "example.com/me/tool", r.String())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAlwaysPull, p)

	p, err = ParsePolicy("prefer_cache")
	require.NoError(t, err)
	assert.Equal(t, PolicyPreferCache, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}

func fakeClone(t *testing.T, dir string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	require.NoError(t, os.Chtimes(dir, modTime, modTime))
}

func TestFetchPreferCacheUsesExistingClone(t *testing.T) {
	base := t.TempDir()
	repo, err := Parse("https://github.com/me/tool")
	require.NoError(t, err)
	fakeClone(t, repo.CachePath(base), time.Now().Add(-48*time.Hour))

	path, err := Fetch(context.Background(), repo, FetchOptions{
		CacheDir: base,
		Policy:   PolicyPreferCache,
		Logger:   logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, repo.CachePath(base), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), info.ModTime(), time.Minute, "a used clone is touched")
}

func TestCleanCache(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	fakeClone(t, filepath.Join(base, "github", "me", "old"), now.Add(-10*24*time.Hour))
	fakeClone(t, filepath.Join(base, "github", "me", "fresh"), now.Add(-time.Hour))
	fakeClone(t, filepath.Join(base, "git", "example.com", "you", "stale"), now.Add(-30*24*time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(base, "root.token_cache.json"), []byte("{}"), 0644))

	removed, err := CleanCache(base, 7*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoDirExists(t, filepath.Join(base, "github", "me", "old"))
	assert.DirExists(t, filepath.Join(base, "github", "me", "fresh"))
	assert.NoDirExists(t, filepath.Join(base, "git", "example.com", "you", "stale"))
	assert.FileExists(t, filepath.Join(base, "root.token_cache.json"))
}

func TestCleanCacheMissingBase(t *testing.T) {
	removed, err := CleanCache(filepath.Join(t.TempDir(), "none"), time.Hour, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
