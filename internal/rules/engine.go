// Package rules decides which paths of a scan root survive.
//
// Precedence, highest first:
//
//  1. explicit ignore patterns drop the path, even if it is also included
//  2. hidden entries are dropped when SkipHidden is set
//  3. with a non-empty include list, files matching no include pattern are
//     dropped; directories are never dropped by this rule
//  4. gitignore rules, unless disabled
//  5. everything else is kept
//
// A dropped directory is pruned: its subtree is never walked.
package rules

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Options configures an Engine.
type Options struct {
	Ignore           []string
	Include          []string
	RespectGitignore bool
	// GitignorePath replaces the project's own .gitignore files when set.
	GitignorePath string
	SkipHidden    bool
}

// Decision is the outcome for a single path. Rule names what decided it and
// exists for diagnostics only.
type Decision struct {
	Keep        bool
	SkipSubtree bool
	Rule        string
}

// Engine evaluates Options against paths relative to a scan root.
type Engine struct {
	ignore     []Pattern
	include    []Pattern
	skipHidden bool
	gitignore  *gitignoreSet
}

// New compiles the patterns for root. Invalid patterns or an unreadable
// override file are reported as errors.
func New(root string, opts Options) (*Engine, error) {
	ignore, err := CompileAll(opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore patterns: %w", err)
	}
	include, err := CompileAll(opts.Include)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}

	e := &Engine{
		ignore:     ignore,
		include:    include,
		skipHidden: opts.SkipHidden,
	}
	if opts.RespectGitignore {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("error resolving root %s: %w", root, err)
		}
		e.gitignore, err = newGitignoreSet(absRoot, opts.GitignorePath)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Decide evaluates rel (slash separated, relative to the root).
func (e *Engine) Decide(rel string, isDir bool) Decision {
	rel = strings.TrimPrefix(path.Clean(filepath.ToSlash(rel)), "./")

	if p, ok := matchAny(e.ignore, rel, isDir); ok {
		return drop(isDir, "ignore "+p.String())
	}
	if e.skipHidden && isHidden(path.Base(rel)) {
		return drop(isDir, "hidden")
	}
	if !isDir && len(e.include) > 0 {
		if _, ok := matchAny(e.include, rel, false); !ok {
			return drop(false, "not included")
		}
	}
	if e.gitignore != nil && e.gitignore.ignored(rel, isDir) {
		return drop(isDir, "gitignore")
	}
	if !isDir && len(e.include) > 0 {
		return Decision{Keep: true, Rule: "include"}
	}
	return Decision{Keep: true, Rule: "default"}
}

func drop(isDir bool, rule string) Decision {
	return Decision{Keep: false, SkipSubtree: isDir, Rule: rule}
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
