package tree

import (
	"errors"
	"time"
)

var errNotProcessed = errors.New("file was not processed")

// Builder assembles a ScanTree. The directory skeleton is created by a single
// walking goroutine through AddDir/AddFile; each file gets a slot index whose
// node is already linked into its parent. Workers then call Complete with
// their slot from any goroutine, so the final order is the walk order no
// matter which worker finishes first.
type Builder struct {
	root     *Node
	slots    []*Node
	counters counters
}

// NewBuilder starts a tree rooted at the given directory entry.
func NewBuilder(root PathEntry) *Builder {
	root.Kind = KindDir
	return &Builder{root: &Node{Entry: root}}
}

// Root returns the root directory node.
func (b *Builder) Root() *Node {
	return b.root
}

// AddDir appends a directory node under parent and returns it. Walk-goroutine only.
func (b *Builder) AddDir(parent *Node, entry PathEntry) *Node {
	node := &Node{Entry: entry}
	parent.Children = append(parent.Children, node)
	return node
}

// AddFile appends a placeholder for a file or symlink under parent and returns
// its slot index. Walk-goroutine only.
func (b *Builder) AddFile(parent *Node, entry PathEntry) int {
	node := &Node{Entry: entry}
	parent.Children = append(parent.Children, node)
	b.slots = append(b.slots, node)
	return len(b.slots) - 1
}

// Len is the number of file slots.
func (b *Builder) Len() int {
	return len(b.slots)
}

// Entry returns the PathEntry stored for slot.
func (b *Builder) Entry(slot int) PathEntry {
	return b.slots[slot].Entry
}

// Complete stores the record for slot and accumulates its stats. Safe for
// concurrent use as long as each slot is completed once.
func (b *Builder) Complete(slot int, rec *FileRecord) {
	rec.Entry = b.slots[slot].Entry
	b.slots[slot].Record = rec
	b.counters.add(rec)
}

// Finish seals the tree once every worker has returned. Slots that were never
// completed become unreadable records.
func (b *Builder) Finish(elapsed time.Duration) *ScanTree {
	for i, node := range b.slots {
		if node.Record == nil {
			b.Complete(i, &FileRecord{State: StateUnreadable, Err: errNotProcessed})
		}
	}
	stats := b.counters.snapshot()
	stats.Elapsed = elapsed
	return &ScanTree{Root: b.root, Stats: stats}
}
