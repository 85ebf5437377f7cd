// Package scanner walks a directory tree, filters it through the rule engine
// and measures every accepted file on a bounded pool of workers.
//
// The walk runs on a single goroutine and builds the ordered tree skeleton.
// Measurement (reading, binary detection, line and token counting) is done in
// parallel; each result is stored into the slot reserved for it during the
// walk, so output order never depends on worker scheduling.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jadenpxrk/dumpfs/internal/cache"
	"github.com/jadenpxrk/dumpfs/internal/language"
	"github.com/jadenpxrk/dumpfs/internal/logger"
	"github.com/jadenpxrk/dumpfs/internal/rules"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

var (
	ErrRootNotFound = errors.New("scan root does not exist")
	ErrNotDirectory = errors.New("scan root is not a directory")
)

// TokenSource produces token counts for file content. *cache.Cache is the
// production implementation.
type TokenSource interface {
	GetOrCompute(ctx context.Context, path string, content []byte, model string) cache.Result
}

// Progress receives measurement progress. Start is called once with the
// number of files to measure, Advance once per measured file from any worker.
type Progress interface {
	Start(total int)
	Advance(rel string)
}

// Options configures a scan.
type Options struct {
	Root string
	// Rules gates every entry; nil keeps everything.
	Rules *rules.Engine
	// Tokens counts tokens; nil estimates every file.
	Tokens TokenSource
	Model  string
	// Workers bounds the measurement pool; <= 0 means runtime.NumCPU().
	Workers        int
	FollowSymlinks bool
	// MaxFileSize marks larger files as too large; 0 disables the limit.
	MaxFileSize int64
	Languages   *language.Detector
	// Exclude lists absolute paths that are never part of the result, such
	// as the output file of the current run.
	Exclude  []string
	Logger   *logger.Logger
	Progress Progress
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Scan walks opts.Root and returns the measured tree. Only a missing,
// non-directory or unreadable root and context cancellation are errors;
// per-file problems degrade the affected record instead.
func Scan(ctx context.Context, opts Options) (*tree.ScanTree, error) {
	start := time.Now()

	root, info, err := ResolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving root %s: %w", root, err)
	}
	rootEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("error reading root %s: %w", root, err)
	}

	b := tree.NewBuilder(tree.PathEntry{
		AbsPath: root,
		RelPath: ".",
		Name:    filepath.Base(root),
		Kind:    tree.KindDir,
		ModTime: info.ModTime(),
		Mode:    info.Mode().Perm(),
	})

	w := newWalker(opts, b)
	w.active[canonical] = true
	w.addEntries(ctx, b.Root(), root, canonical, ".", rootEntries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.Logger.Debugf("walk of %s accepted %d files, %d to measure", root, b.Len(), len(w.jobs))

	m := &measurer{
		tokens:  opts.Tokens,
		model:   opts.Model,
		maxSize: opts.MaxFileSize,
		langs:   opts.Languages,
	}

	if opts.Progress != nil {
		opts.Progress.Start(len(w.jobs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for _, j := range w.jobs {
		if gctx.Err() != nil {
			break
		}
		j := j
		g.Go(func() error {
			entry := b.Entry(j.slot)
			b.Complete(j.slot, m.measure(gctx, entry, j.keyPath))
			if opts.Progress != nil {
				opts.Progress.Advance(entry.RelPath)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return b.Finish(time.Since(start)), nil
}

// ResolveRoot makes root absolute and checks that it is an existing
// directory. A missing root wraps ErrRootNotFound; other stat failures are
// returned as they are.
func ResolveRoot(root string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("error resolving root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrRootNotFound, abs)
		}
		return "", nil, fmt.Errorf("error accessing root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, info, nil
}
