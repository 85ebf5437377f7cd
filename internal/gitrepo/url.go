// Package gitrepo turns a remote repository URL into a local directory that
// can be scanned, keeping clones in a per-user cache between runs.
package gitrepo

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned by Parse for strings that are not repository URLs.
var ErrInvalidURL = errors.New("invalid git repository URL")

var sshURL = regexp.MustCompile(`^git@([^:/]+):([^/]+(?:/[^/]+)*)/([^/]+?)(?:\.git)?/?$`)

// Repo identifies a remote repository.
type Repo struct {
	URL   string
	Host  string
	Owner string // may contain slashes for nested groups
	Name  string
}

func (r Repo) String() string {
	return r.Host + "/" + r.Owner + "/" + r.Name
}

// IsURL reports whether s parses as a repository URL.
func IsURL(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse accepts http(s)://host/owner/name[.git] and git@host:owner/name[.git].
func Parse(raw string) (Repo, error) {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return parseHTTP(raw)
	case strings.HasPrefix(raw, "git@"):
		m := sshURL.FindStringSubmatch(raw)
		if m == nil {
			return Repo{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
		}
		r := Repo{URL: raw, Host: m[1], Owner: m[2], Name: m[3]}
		if !r.safe() {
			return Repo{}, fmt.Errorf("%w: relative path segment in %s", ErrInvalidURL, raw)
		}
		return r, nil
	default:
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
}

func parseHTTP(raw string) (Repo, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return Repo{}, fmt.Errorf("%w: missing owner or repository in %s", ErrInvalidURL, raw)
	}

	name := strings.TrimSuffix(segments[len(segments)-1], ".git")
	if name == "" {
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	r := Repo{
		URL:   raw,
		Host:  strings.TrimPrefix(u.Hostname(), "www."),
		Owner: strings.Join(segments[:len(segments)-1], "/"),
		Name:  name,
	}
	if !r.safe() {
		return Repo{}, fmt.Errorf("%w: relative path segment in %s", ErrInvalidURL, raw)
	}
	return r, nil
}

// safe reports whether r's parts can be joined into a cache path without
// escaping it.
func (r Repo) safe() bool {
	parts := append([]string{r.Host, r.Name}, strings.Split(r.Owner, "/")...)
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsRune(p, '\\') {
			return false
		}
	}
	return true
}

// providerDirs are the top-level directories clones are grouped under.
var providerDirs = []string{"github", "gitlab", "bitbucket", "git"}

// CachePath is where the clone of r lives below base.
func (r Repo) CachePath(base string) string {
	owner := filepath.FromSlash(r.Owner)
	switch r.Host {
	case "github.com":
		return filepath.Join(base, "github", owner, r.Name)
	case "gitlab.com":
		return filepath.Join(base, "gitlab", owner, r.Name)
	case "bitbucket.org":
		return filepath.Join(base, "bitbucket", owner, r.Name)
	default:
		return filepath.Join(base, "git", r.Host, owner, r.Name)
	}
}
