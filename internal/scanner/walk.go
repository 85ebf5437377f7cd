package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/jadenpxrk/dumpfs/internal/logger"
	"github.com/jadenpxrk/dumpfs/internal/rules"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

var errSymlinkCycle = errors.New("symlink cycle")

// job is a file slot waiting for a worker. keyPath is the canonical path used
// for cache keys.
type job struct {
	slot    int
	keyPath string
}

// walker builds the tree skeleton. It is used by one goroutine only.
type walker struct {
	rules          *rules.Engine
	followSymlinks bool
	exclude        map[string]bool
	log            *logger.Logger
	b              *tree.Builder

	// canonical paths of the directories on the current descent path
	active map[string]bool
	jobs   []job
}

func newWalker(opts Options, b *tree.Builder) *walker {
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			exclude[abs] = true
		}
	}
	return &walker{
		rules:          opts.Rules,
		followSymlinks: opts.FollowSymlinks,
		exclude:        exclude,
		log:            opts.Logger,
		b:              b,
		active:         make(map[string]bool),
	}
}

func (w *walker) decide(rel string, isDir bool) rules.Decision {
	if w.rules == nil {
		return rules.Decision{Keep: true, Rule: "default"}
	}
	return w.rules.Decide(rel, isDir)
}

// walkDir reads dir and adds its accepted entries under parent. A read error
// leaves parent empty.
func (w *walker) walkDir(ctx context.Context, parent *tree.Node, dir, canonical, rel string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.Warnf("error reading directory %s: %v", dir, err)
		return
	}
	w.addEntries(ctx, parent, dir, canonical, rel, entries)
}

func (w *walker) addEntries(ctx context.Context, parent *tree.Node, dir, canonical, rel string, entries []fs.DirEntry) {
	for _, de := range entries {
		if ctx.Err() != nil {
			return
		}
		name := de.Name()
		abs := filepath.Join(dir, name)
		if w.exclude[abs] {
			continue
		}
		childRel := name
		if rel != "." {
			childRel = path.Join(rel, name)
		}

		info, err := os.Lstat(abs)
		if err != nil {
			w.log.Warnf("error accessing path %s: %v", abs, err)
			continue
		}
		entry := tree.PathEntry{
			AbsPath: abs,
			RelPath: childRel,
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode().Perm(),
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			w.addSymlink(ctx, parent, entry)
		case info.IsDir():
			if d := w.decide(childRel, true); !d.Keep {
				w.log.Debugf("skipping %s/ (%s)", childRel, d.Rule)
				continue
			}
			entry.Kind = tree.KindDir
			w.enter(ctx, parent, entry, abs, filepath.Join(canonical, name))
		case info.Mode().IsRegular():
			if d := w.decide(childRel, false); !d.Keep {
				w.log.Debugf("skipping %s (%s)", childRel, d.Rule)
				continue
			}
			entry.Kind = tree.KindFile
			w.addJob(parent, entry, filepath.Join(canonical, name))
		default:
			// sockets, devices and pipes carry no content worth dumping
			w.log.Debugf("skipping special file %s", childRel)
		}
	}
}

func (w *walker) enter(ctx context.Context, parent *tree.Node, entry tree.PathEntry, dir, canonical string) {
	node := w.b.AddDir(parent, entry)
	w.active[canonical] = true
	w.walkDir(ctx, node, dir, canonical, entry.RelPath)
	delete(w.active, canonical)
}

func (w *walker) addJob(parent *tree.Node, entry tree.PathEntry, keyPath string) {
	slot := w.b.AddFile(parent, entry)
	w.jobs = append(w.jobs, job{slot: slot, keyPath: keyPath})
}

// addSymlink records a link as-is, or resolves it when following is enabled.
// A followed link to a directory already on the descent path is recorded as
// a cycle and not entered.
func (w *walker) addSymlink(ctx context.Context, parent *tree.Node, entry tree.PathEntry) {
	target, err := os.Readlink(entry.AbsPath)
	if err != nil {
		w.log.Warnf("error reading symlink %s: %v", entry.AbsPath, err)
	}
	entry.LinkTarget = target
	entry.Kind = tree.KindSymlink

	if !w.followSymlinks {
		if d := w.decide(entry.RelPath, false); !d.Keep {
			w.log.Debugf("skipping %s (%s)", entry.RelPath, d.Rule)
			return
		}
		slot := w.b.AddFile(parent, entry)
		w.b.Complete(slot, &tree.FileRecord{State: tree.StateSymlink})
		return
	}

	info, statErr := os.Stat(entry.AbsPath)
	isDir := statErr == nil && info.IsDir()
	if d := w.decide(entry.RelPath, isDir); !d.Keep {
		w.log.Debugf("skipping %s (%s)", entry.RelPath, d.Rule)
		return
	}
	if statErr != nil {
		slot := w.b.AddFile(parent, entry)
		w.b.Complete(slot, &tree.FileRecord{State: tree.StateUnreadable, Err: statErr})
		return
	}

	resolved, err := filepath.EvalSymlinks(entry.AbsPath)
	if err != nil {
		slot := w.b.AddFile(parent, entry)
		w.b.Complete(slot, &tree.FileRecord{State: tree.StateUnreadable, Err: err})
		return
	}

	entry.Size = info.Size()
	entry.ModTime = info.ModTime()
	entry.Mode = info.Mode().Perm()

	if isDir {
		if w.active[resolved] {
			w.log.Warnf("symlink cycle at %s -> %s", entry.RelPath, target)
			slot := w.b.AddFile(parent, entry)
			w.b.Complete(slot, &tree.FileRecord{State: tree.StateCycle, Err: errSymlinkCycle})
			return
		}
		entry.Kind = tree.KindDir
		w.enter(ctx, parent, entry, entry.AbsPath, resolved)
		return
	}
	if !info.Mode().IsRegular() {
		w.log.Debugf("skipping special file %s", entry.RelPath)
		return
	}
	entry.Kind = tree.KindFile
	w.addJob(parent, entry, resolved)
}
