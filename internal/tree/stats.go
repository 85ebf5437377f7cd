package tree

import (
	"sync/atomic"
	"time"
)

// Stats holds the aggregate counters of a completed scan.
type Stats struct {
	Files          int64
	Lines          int64
	Chars          int64
	Tokens         int64
	EstimatedFiles int64
	Binary         int64
	Unreadable     int64
	CacheHits      int64
	CacheMisses    int64
	Elapsed        time.Duration
}

// HitRate is hits/(hits+misses), or 0 when no file went through the cache.
func (s Stats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// TokensExact reports whether every token count came from a tokenizer.
func (s Stats) TokensExact() bool {
	return s.EstimatedFiles == 0
}

// counters is the concurrently mutated form of Stats.
type counters struct {
	files, lines, chars, tokens atomic.Int64
	estimated, binary, unread   atomic.Int64
	hits, misses                atomic.Int64
}

func (c *counters) add(rec *FileRecord) {
	c.files.Add(1)
	c.lines.Add(int64(rec.Lines))
	c.chars.Add(int64(rec.Chars))
	c.tokens.Add(int64(rec.Tokens))

	switch rec.State {
	case StateBinary:
		c.binary.Add(1)
	case StateUnreadable, StateCycle:
		c.unread.Add(1)
	case StateText:
		if !rec.TokensExact {
			c.estimated.Add(1)
		}
	}

	switch rec.Cache {
	case CacheHit:
		c.hits.Add(1)
	case CacheMiss:
		c.misses.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Files:          c.files.Load(),
		Lines:          c.lines.Load(),
		Chars:          c.chars.Load(),
		Tokens:         c.tokens.Load(),
		EstimatedFiles: c.estimated.Load(),
		Binary:         c.binary.Load(),
		Unreadable:     c.unread.Load(),
		CacheHits:      c.hits.Load(),
		CacheMisses:    c.misses.Load(),
	}
}
