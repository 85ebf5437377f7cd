package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"

	"github.com/jadenpxrk/dumpfs/internal/config"
	"github.com/jadenpxrk/dumpfs/internal/rules"
)

type candidate struct {
	rel   string
	isDir bool
}

// runInteractiveFinder lets the user pick files and directories below root
// and returns them as include patterns. A nil result means the user aborted.
func runInteractiveFinder(root string, showHidden bool) ([]string, error) {
	candidates, err := findCandidates(root, showHidden)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no files or directories found to select from")
	}

	idx, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string {
			if candidates[i].isDir {
				return candidates[i].rel + "/"
			}
			return candidates[i].rel
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select files or directories to include. Press Tab to multi-select, Enter to confirm."
			}
			c := candidates[i]
			info, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(c.rel)))
			if statErr != nil {
				return fmt.Sprintf("Path: %s\nError getting info: %v", c.rel, statErr)
			}
			kind := "File"
			if info.IsDir() {
				kind = "Directory"
			}
			return fmt.Sprintf("Path: %s\nType: %s\nSize: %d bytes", c.rel, kind, info.Size())
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			fmt.Fprintln(os.Stderr, "Interactive selection aborted.")
			return nil, nil
		}
		return nil, fmt.Errorf("fuzzy finder error: %w", err)
	}

	patterns := make([]string, 0, len(idx))
	for _, i := range idx {
		patterns = append(patterns, includePattern(candidates[i]))
	}
	return patterns, nil
}

// findCandidates lists the entries the scan could include, pruned by the
// default ignore list and, unless showHidden, hidden names.
func findCandidates(root string, showHidden bool) ([]candidate, error) {
	engine, err := rules.New(root, rules.Options{
		Ignore:     config.DefaultIgnorePatterns,
		SkipHidden: !showHidden,
	})
	if err != nil {
		return nil, err
	}

	var out []candidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !engine.Decide(rel, d.IsDir()).Keep {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		out = append(out, candidate{rel: rel, isDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning for files/directories: %w", err)
	}
	return out, nil
}

// includePattern anchors a picked entry at the root; directories include
// everything below them.
func includePattern(c candidate) string {
	if c.isDir {
		return "/" + c.rel + "/**"
	}
	return "/" + c.rel
}
