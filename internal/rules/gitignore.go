package rules

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// gitignoreSet answers gitignore questions for paths under root. Project
// .gitignore files are loaded lazily, one per directory, each anchored at the
// directory that holds it. An override file replaces all of them.
//
// Patterns are evaluated in git's order: .git/info/exclude, then .gitignore
// files from the root down, lines in file order. The last matching pattern
// decides, so a deeper "!name" re-includes what a parent excluded.
type gitignoreSet struct {
	root     string
	override gitignore.Matcher

	mu       sync.Mutex
	dirs     map[string][]gitignore.Pattern
	matchers map[string]gitignore.Matcher
}

func newGitignoreSet(root, overridePath string) (*gitignoreSet, error) {
	g := &gitignoreSet{
		root:     root,
		dirs:     make(map[string][]gitignore.Pattern),
		matchers: make(map[string]gitignore.Matcher),
	}
	if overridePath == "" {
		return g, nil
	}

	ps, err := readPatterns(overridePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open gitignore override %s: %w", overridePath, err)
	}
	g.override = gitignore.NewMatcher(ps)
	return g, nil
}

// ignored reports whether the applicable ignore files exclude rel.
func (g *gitignoreSet) ignored(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	if g.override != nil {
		return g.override.Match(parts, isDir)
	}
	return g.matcherFor(path.Dir(rel)).Match(parts, isDir)
}

// matcherFor returns the matcher holding every pattern that applies to
// entries directly inside relDir, ordered by increasing priority.
func (g *gitignoreSet) matcherFor(relDir string) gitignore.Matcher {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.matchers[relDir]; ok {
		return m
	}
	var ps []gitignore.Pattern
	for _, dir := range ancestors(relDir) {
		ps = append(ps, g.patternsFor(dir)...)
	}
	m := gitignore.NewMatcher(ps)
	g.matchers[relDir] = m
	return m
}

// patternsFor loads the ignore files of one directory. Callers hold g.mu.
func (g *gitignoreSet) patternsFor(relDir string) []gitignore.Pattern {
	if ps, ok := g.dirs[relDir]; ok {
		return ps
	}

	absDir := filepath.Join(g.root, filepath.FromSlash(relDir))
	var domain []string
	if relDir != "." {
		domain = strings.Split(relDir, "/")
	}

	var ps []gitignore.Pattern
	if relDir == "." {
		if exclude, err := readPatterns(filepath.Join(absDir, ".git", "info", "exclude"), nil); err == nil {
			ps = append(ps, exclude...)
		}
	}
	if own, err := readPatterns(filepath.Join(absDir, ".gitignore"), domain); err == nil {
		ps = append(ps, own...)
	}
	g.dirs[relDir] = ps
	return ps
}

// readPatterns parses an ignore file, skipping blank lines and comments.
func readPatterns(name string, domain []string) ([]gitignore.Pattern, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ps []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}
	return ps, sc.Err()
}

// ancestors lists relDir and the directories above it, from the root down.
func ancestors(relDir string) []string {
	dirs := []string{"."}
	if relDir == "." || relDir == "" {
		return dirs
	}
	parts := strings.Split(relDir, "/")
	for i := range parts {
		dirs = append(dirs, strings.Join(parts[:i+1], "/"))
	}
	return dirs
}
