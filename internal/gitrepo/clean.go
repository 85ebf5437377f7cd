package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CleanCache removes clones below base that were not used within maxAge and
// returns how many were removed.
func CleanCache(base string, maxAge time.Duration, now time.Time) (int, error) {
	removed := 0
	for _, provider := range providerDirs {
		n, err := cleanDir(filepath.Join(base, provider), maxAge, now)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func cleanDir(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory %s: %w", dir, err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if !isClone(p) {
			n, err := cleanDir(p, maxAge, now)
			removed += n
			if err != nil {
				return removed, err
			}
			continue
		}

		info, err := os.Stat(p)
		if err != nil || now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}
