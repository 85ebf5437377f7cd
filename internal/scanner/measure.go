package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/jadenpxrk/dumpfs/internal/language"
	"github.com/jadenpxrk/dumpfs/internal/tokenizer"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

const (
	sniffLen            = 8192
	maxControlByteRatio = 0.1
)

// measurer turns one accepted file into a FileRecord. It holds no mutable
// state and is shared by all workers.
type measurer struct {
	tokens  TokenSource
	model   string
	maxSize int64
	langs   *language.Detector
}

func (m *measurer) measure(ctx context.Context, entry tree.PathEntry, keyPath string) *tree.FileRecord {
	rec := &tree.FileRecord{}
	if m.maxSize > 0 && entry.Size > m.maxSize {
		rec.State = tree.StateTooLarge
		return rec
	}

	data, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		rec.State = tree.StateUnreadable
		rec.Err = err
		return rec
	}
	// the file may have grown since it was stat'ed
	if m.maxSize > 0 && int64(len(data)) > m.maxSize {
		rec.State = tree.StateTooLarge
		return rec
	}
	// invalid UTF-8 past the sniffed prefix is binary too
	if isBinary(data) || !utf8.Valid(data) {
		rec.State = tree.StateBinary
		return rec
	}

	rec.State = tree.StateText
	rec.Content = string(data)
	rec.Lines = countLines(data)
	rec.Chars = utf8.RuneCount(data)
	rec.Language = m.langs.Detect(entry.Name)

	if m.tokens == nil {
		rec.Tokens = tokenizer.Estimate(rec.Content)
		rec.Cache = tree.CacheBypass
		return rec
	}
	res := m.tokens.GetOrCompute(ctx, keyPath, data, m.model)
	rec.Tokens = res.Tokens
	rec.TokensExact = res.Exact
	rec.Cache = res.Outcome
	if !res.Exact && m.model != "" {
		rec.Err = fmt.Errorf("token count for %s is an estimate", entry.RelPath)
	}
	return rec
}

// countLines counts newline-terminated lines plus a final unterminated one.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// isBinary inspects the first 8 KiB: a NUL byte, invalid UTF-8 or more than
// 10% control characters (other than tab, newline, vertical tab, form feed
// and carriage return) mark the content as binary.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > sniffLen {
		sample = trimPartialRune(sample[:sniffLen])
	}
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	if !utf8.Valid(sample) {
		return true
	}
	control := 0
	for _, b := range sample {
		if b < '\t' || (b > '\r' && b < ' ') {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > maxControlByteRatio
}

// trimPartialRune drops a multi-byte sequence cut off by the sample boundary.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < utf8.RuneSelf {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
