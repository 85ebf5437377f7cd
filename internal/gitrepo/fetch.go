package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jadenpxrk/dumpfs/internal/logger"
)

// Policy decides how an existing clone is reused.
type Policy string

const (
	// PolicyAlwaysPull pulls an existing clone before scanning it.
	PolicyAlwaysPull Policy = "always_pull"
	// PolicyPreferCache scans an existing clone as is.
	PolicyPreferCache Policy = "prefer_cache"
	// PolicyForceClone deletes any existing clone and clones again.
	PolicyForceClone Policy = "force_clone"
)

// ParsePolicy validates a policy name; the empty string selects PolicyAlwaysPull.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyAlwaysPull, nil
	case PolicyAlwaysPull, PolicyPreferCache, PolicyForceClone:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown git cache policy %q (want always_pull, prefer_cache or force_clone)", s)
}

// FetchOptions configures Fetch.
type FetchOptions struct {
	// CacheDir is the clone cache root; defaults to DefaultCacheDir().
	CacheDir string
	Policy   Policy
	// Progress receives git's sideband progress output; may be nil.
	Progress io.Writer
	Logger   *logger.Logger
}

// DefaultCacheDir is the per-user directory repositories are cloned into.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, "dumpfs"), nil
}

// Fetch makes repo available locally and returns the clone's path.
func Fetch(ctx context.Context, repo Repo, opts FetchOptions) (string, error) {
	base := opts.CacheDir
	if base == "" {
		var err error
		if base, err = DefaultCacheDir(); err != nil {
			return "", err
		}
	}
	dest := repo.CachePath(base)
	log := opts.Logger

	if opts.Policy == PolicyForceClone {
		if err := os.RemoveAll(dest); err != nil {
			return "", fmt.Errorf("failed to remove cached clone %s: %w", dest, err)
		}
	}

	if isClone(dest) {
		switch opts.Policy {
		case PolicyPreferCache:
			log.Infof("Using cached clone of %s at %s", repo, dest)
		default:
			log.Infof("Updating cached clone of %s", repo)
			if err := pull(ctx, dest, opts.Progress); err != nil {
				log.Warnf("failed to update %s, scanning cached copy: %v", repo, err)
			}
		}
		touch(dest)
		return dest, nil
	}

	log.Infof("Cloning Git repository '%s' into '%s'...", repo.URL, dest)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:           repo.URL,
		Progress:      opts.Progress,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("failed to clone repository '%s': %w", repo.URL, err)
	}
	log.Infof("Finished cloning '%s'.", repo.URL)
	return dest, nil
}

func pull(ctx context.Context, dir string, progress io.Writer) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Progress: progress})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

func isClone(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// touch marks a clone as used so CleanCache keeps it.
func touch(dir string) {
	now := time.Now()
	_ = os.Chtimes(dir, now, now)
}
