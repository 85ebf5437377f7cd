// Package cache stores token counts keyed by file content so unchanged files
// are never re-tokenized across runs.
//
// One cache file exists per scan root. Entries are keyed by the canonical
// file path, the xxhash of the content and the model, and expire seven days
// after they were last used.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jadenpxrk/dumpfs/internal/filelock"
	"github.com/jadenpxrk/dumpfs/internal/logger"
	"github.com/jadenpxrk/dumpfs/internal/tokenizer"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

// DefaultMaxAge is how long an unused entry survives.
const DefaultMaxAge = 7 * 24 * time.Hour

const fileSuffix = ".token_cache.json"

var errNoCounter = errors.New("no tokenizer configured")

// Key identifies one cached count.
type Key struct {
	Path  string
	Hash  string
	Model string
}

func (k Key) flight() string {
	return k.Path + "\x00" + k.Hash + "\x00" + k.Model
}

// Entry is the persisted form of a cached count.
type Entry struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Model      string    `json:"model"`
	Tokens     int       `json:"tokens"`
	LastAccess time.Time `json:"last_access"`
}

func (e *Entry) key() Key {
	return Key{Path: e.Path, Hash: e.Hash, Model: e.Model}
}

type fileFormat struct {
	Root    string   `json:"root"`
	Entries []*Entry `json:"entries"`
}

// Result is the answer to one GetOrCompute call.
type Result struct {
	Tokens  int
	Exact   bool
	Outcome tree.CacheOutcome
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Options configures Open.
type Options struct {
	// Dir holds the cache files; defaults to <user cache dir>/dumpfs.
	Dir     string
	Counter tokenizer.Counter
	// Disabled keeps everything in memory: nothing is loaded or saved.
	Disabled bool
	MaxAge   time.Duration
	Logger   *logger.Logger
}

// Cache is a persistent, concurrency-safe token count cache for one root.
type Cache struct {
	root     string
	path     string
	counter  tokenizer.Counter
	disabled bool
	maxAge   time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[Key]*Entry
	order   []Key
	failed  map[Key]struct{}

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Open creates the cache for root and loads its file. A missing file starts
// an empty cache; an unreadable or corrupt one is logged and ignored.
func Open(root string, opts Options) (*Cache, error) {
	canonical, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	c := &Cache{
		root:     canonical,
		path:     filepath.Join(dir, FileName(canonical)),
		counter:  opts.Counter,
		disabled: opts.Disabled,
		maxAge:   maxAge,
		log:      opts.Logger,
		now:      time.Now,
		entries:  make(map[Key]*Entry),
		failed:   make(map[Key]struct{}),
	}
	if !c.disabled {
		c.load()
	}
	return c, nil
}

// DefaultDir is the per-user cache directory for dumpfs.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, "dumpfs"), nil
}

// FileName derives the cache file name for a canonical root path. The
// readable part is truncated for very deep roots; the hash keeps names
// unique.
func FileName(canonicalRoot string) string {
	var b strings.Builder
	for _, r := range canonicalRoot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) > 96 {
		name = name[len(name)-96:]
	}
	return fmt.Sprintf("%s-%08x%s", name, uint32(xxhash.Sum64String(canonicalRoot)), fileSuffix)
}

func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("error resolving root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("error resolving root %s: %w", root, err)
	}
	return resolved, nil
}

// Path is the location of the cache file.
func (c *Cache) Path() string {
	return c.path
}

// HashContent is the content fingerprint used in keys.
func HashContent(content []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(content))
	return hex.EncodeToString(buf[:])
}

type computed struct {
	tokens int
	stored bool // found by the double check, nobody tokenized
}

// GetOrCompute returns the token count for content at path under model.
//
// An empty model bypasses the cache and returns the estimate. Otherwise at
// most one tokenizer call is made per key during the lifetime of the cache:
// concurrent callers for the same key wait for the first one and count as
// hits. A tokenizer failure yields the estimate, counts as a miss and is
// remembered so the key is not retried.
func (c *Cache) GetOrCompute(ctx context.Context, path string, content []byte, model string) Result {
	if model == "" {
		return Result{Tokens: tokenizer.Estimate(string(content)), Outcome: tree.CacheBypass}
	}

	key := Key{Path: path, Hash: HashContent(content), Model: model}
	if tokens, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return Result{Tokens: tokens, Exact: true, Outcome: tree.CacheHit}
	}
	if c.hasFailed(key) {
		return c.estimateMiss(content)
	}

	var ran bool
	v, err, _ := c.group.Do(key.flight(), func() (any, error) {
		ran = true
		if tokens, ok := c.lookup(key); ok {
			return computed{tokens: tokens, stored: true}, nil
		}
		if c.counter == nil {
			c.markFailed(key)
			return nil, &tokenizer.Error{Model: model, Err: errNoCounter}
		}
		n, err := c.counter.CountTokens(ctx, string(content), model)
		if err != nil {
			c.markFailed(key)
			return nil, err
		}
		c.store(key, n)
		return computed{tokens: n}, nil
	})
	if err != nil {
		if ran {
			c.log.Warnf("token count failed for %s, using estimate: %v", path, err)
		}
		return c.estimateMiss(content)
	}

	res := v.(computed)
	if ran && !res.stored {
		c.misses.Add(1)
		return Result{Tokens: res.tokens, Exact: true, Outcome: tree.CacheMiss}
	}
	c.hits.Add(1)
	return Result{Tokens: res.tokens, Exact: true, Outcome: tree.CacheHit}
}

func (c *Cache) estimateMiss(content []byte) Result {
	c.misses.Add(1)
	return Result{Tokens: tokenizer.Estimate(string(content)), Outcome: tree.CacheMiss}
}

func (c *Cache) lookup(key Key) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	e.LastAccess = c.now()
	return e.Tokens, true
}

func (c *Cache) store(key Key, tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Tokens = tokens
		e.LastAccess = c.now()
		return
	}
	c.entries[key] = &Entry{
		Path:       key.Path,
		Hash:       key.Hash,
		Model:      key.Model,
		Tokens:     tokens,
		LastAccess: c.now(),
	}
	c.order = append(c.order, key)
}

func (c *Cache) hasFailed(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[key]
	return ok
}

func (c *Cache) markFailed(key Key) {
	c.mu.Lock()
	c.failed[key] = struct{}{}
	c.mu.Unlock()
}

// Stats returns the hit and miss counters and the number of stored entries.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warnf("failed to read token cache %s: %v", c.path, err)
		}
		return
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Warnf("ignoring corrupt token cache %s: %v", c.path, err)
		return
	}

	cutoff := c.now().Add(-c.maxAge)
	dropped := 0
	for _, e := range f.Entries {
		if e == nil {
			continue
		}
		if e.LastAccess.Before(cutoff) {
			dropped++
			continue
		}
		key := e.key()
		if _, dup := c.entries[key]; !dup {
			c.order = append(c.order, key)
		}
		c.entries[key] = e
	}
	c.log.Debugf("loaded %d token cache entries from %s (%d expired)", len(c.entries), c.path, dropped)
}

// Save prunes expired entries and atomically replaces the cache file.
func (c *Cache) Save() error {
	if c.disabled {
		return nil
	}

	c.mu.Lock()
	cutoff := c.now().Add(-c.maxAge)
	kept := c.order[:0]
	f := fileFormat{Root: c.root, Entries: make([]*Entry, 0, len(c.order))}
	for _, key := range c.order {
		e := c.entries[key]
		if e.LastAccess.Before(cutoff) {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
		f.Entries = append(f.Entries, e)
	}
	c.order = kept
	data, err := json.MarshalIndent(f, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}

	if err := filelock.LockAndWrite(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save token cache: %w", err)
	}
	return nil
}
