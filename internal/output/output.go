// Package output renders a ScanTree in the supported formats.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jadenpxrk/dumpfs/internal/filelock"
	"github.com/jadenpxrk/dumpfs/internal/gitrepo"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

// ErrUnknownFormat is returned by New for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer serializes a scan result.
type Writer interface {
	Write(w io.Writer, st *tree.ScanTree) error
}

// Options are shared by all formats.
type Options struct {
	// IncludeMetadata adds size, modification time and permissions.
	IncludeMetadata bool
	// Repo describes the remote repository the tree was cloned from, if any.
	Repo *gitrepo.Repo
	// Now stamps the document; defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

type factory func(Options) Writer

var formats = map[string]factory{
	"xml":  func(o Options) Writer { return &xmlWriter{opts: o} },
	"text": func(o Options) Writer { return &textWriter{opts: o} },
	"yaml": func(o Options) Writer { return &yamlWriter{opts: o} },
	"pdf":  func(o Options) Writer { return &pdfWriter{opts: o} },
}

// New returns the Writer for format.
func New(format string, opts Options) (Writer, error) {
	f, ok := formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return f(opts), nil
}

// Formats lists the supported format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Binary reports whether a format produces non-text output that cannot go to
// a terminal or the clipboard.
func Binary(format string) bool {
	return strings.EqualFold(format, "pdf")
}

// Render serializes st into memory.
func Render(w Writer, st *tree.ScanTree) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile atomically replaces path with data so an interrupted run never
// leaves a truncated document behind.
func WriteFile(path string, data []byte) error {
	if err := filelock.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output to %s: %w", path, err)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// stateLabel describes a record that carries no content.
func stateLabel(rec *tree.FileRecord) string {
	switch rec.State {
	case tree.StateBinary:
		return "binary, not included"
	case tree.StateTooLarge:
		return "too large, not included"
	case tree.StateUnreadable:
		if rec.Err != nil {
			return "unreadable: " + rec.Err.Error()
		}
		return "unreadable"
	case tree.StateCycle:
		return "symlink cycle, not followed"
	case tree.StateSymlink:
		return "symlink to " + rec.Entry.LinkTarget
	}
	return ""
}
