package rules

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Pattern is a compiled glob. A pattern without a slash matches the base name
// at any depth; one with a slash is anchored at the scan root. A trailing
// slash restricts it to directories. "**" matches any number of segments.
type Pattern struct {
	raw      string
	glob     gitignore.Pattern
	anchored bool
	dirOnly  bool
}

// Compile validates and compiles a glob pattern.
func Compile(raw string) (Pattern, error) {
	p := Pattern{raw: raw}
	glob := strings.TrimSpace(raw)
	if glob == "" {
		return p, fmt.Errorf("empty pattern")
	}
	if strings.HasSuffix(glob, "/") {
		p.dirOnly = true
		glob = strings.TrimRight(glob, "/")
	}
	if strings.Contains(glob, "/") {
		p.anchored = true
		glob = strings.TrimPrefix(glob, "/")
	}
	if glob == "" {
		return p, fmt.Errorf("pattern %q matches nothing", raw)
	}

	for _, seg := range strings.Split(glob, "/") {
		if seg == "**" {
			continue
		}
		if _, err := filepath.Match(seg, ""); err != nil {
			return p, fmt.Errorf("invalid glob pattern %q: %w", raw, err)
		}
	}
	switch {
	case p.anchored:
		// the leading slash keeps single-segment globs like "/main.go" anchored
		glob = "/" + glob
	case strings.HasPrefix(glob, "!"):
		// a literal name, not a negation
		glob = `\` + glob
	}
	p.glob = gitignore.ParsePattern(glob, nil)
	return p, nil
}

// CompileAll compiles every pattern, skipping blank entries.
func CompileAll(raws []string) ([]Pattern, error) {
	var out []Pattern
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the slash-separated relative path matches.
func (p Pattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	if !p.anchored {
		return p.glob.Match([]string{path.Base(rel)}, isDir) == gitignore.Exclude
	}
	return p.glob.Match(strings.Split(rel, "/"), isDir) == gitignore.Exclude
}

func matchAny(patterns []Pattern, rel string, isDir bool) (Pattern, bool) {
	for _, p := range patterns {
		if p.Match(rel, isDir) {
			return p, true
		}
	}
	return Pattern{}, false
}
