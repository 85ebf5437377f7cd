// Package tree holds the scan result model: path snapshots, per-file records,
// the ordered directory tree handed to serializers and the aggregate stats.
package tree

import (
	"io/fs"
	"sort"
	"time"
)

// Kind is the filesystem node type of a PathEntry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// PathEntry is an immutable snapshot of a filesystem node taken during the walk.
type PathEntry struct {
	AbsPath    string
	RelPath    string // slash separated, "." for the scan root
	Name       string
	Kind       Kind
	Size       int64
	ModTime    time.Time
	Mode       fs.FileMode // permission bits only
	LinkTarget string      // symlinks only
}

// State describes what happened to a file's content.
type State int

const (
	StateText State = iota
	StateBinary
	StateTooLarge
	StateUnreadable
	StateSymlink
	StateCycle
)

func (s State) String() string {
	switch s {
	case StateBinary:
		return "binary"
	case StateTooLarge:
		return "too_large"
	case StateUnreadable:
		return "unreadable"
	case StateSymlink:
		return "symlink"
	case StateCycle:
		return "cycle"
	default:
		return "text"
	}
}

// Degraded reports whether the record carries no measured content.
func (s State) Degraded() bool {
	return s == StateBinary || s == StateTooLarge || s == StateUnreadable || s == StateCycle
}

// CacheOutcome records how a token count was obtained.
type CacheOutcome int

const (
	CacheBypass CacheOutcome = iota // no model, estimated
	CacheHit
	CacheMiss
)

func (c CacheOutcome) String() string {
	switch c {
	case CacheHit:
		return "hit"
	case CacheMiss:
		return "miss"
	default:
		return "bypass"
	}
}

// FileRecord is the measured result for one accepted file or symlink.
type FileRecord struct {
	Entry       PathEntry
	State       State
	Content     string
	Lines       int
	Chars       int
	Tokens      int
	TokensExact bool
	Cache       CacheOutcome
	Language    string
	Err         error
}

// Node is either a directory (Children set, Record nil) or a file/symlink
// (Record set).
type Node struct {
	Entry    PathEntry
	Children []*Node
	Record   *FileRecord
}

// IsDir reports whether n is a directory node.
func (n *Node) IsDir() bool {
	return n.Record == nil
}

// Walk visits n and its descendants depth-first in tree order. Returning
// fs.SkipDir from fn for a directory skips its children.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		if err == fs.SkipDir {
			return nil
		}
		return err
	}
	for _, child := range n.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// ScanTree is the final result of a scan.
type ScanTree struct {
	Root  *Node
	Stats Stats
}

// Files returns every file record in tree order.
func (t *ScanTree) Files() []*FileRecord {
	var files []*FileRecord
	t.Root.Walk(func(n *Node) error {
		if n.Record != nil {
			files = append(files, n.Record)
		}
		return nil
	})
	return files
}

// Largest returns up to n records ordered by descending character count, ties
// broken by path.
func (t *ScanTree) Largest(n int) []*FileRecord {
	files := t.Files()
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Chars != files[j].Chars {
			return files[i].Chars > files[j].Chars
		}
		return files[i].Entry.RelPath < files[j].Entry.RelPath
	})
	if n > 0 && len(files) > n {
		files = files[:n]
	}
	return files
}
