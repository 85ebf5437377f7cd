package tree

import (
	"io/fs"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(rel string, kind Kind) PathEntry {
	return PathEntry{RelPath: rel, Name: rel, Kind: kind}
}

func relPaths(t *ScanTree) []string {
	var paths []string
	t.Root.Walk(func(n *Node) error {
		if n != t.Root {
			paths = append(paths, n.Entry.RelPath)
		}
		return nil
	})
	return paths
}

func TestBuilderKeepsWalkOrderUnderOutOfOrderCompletion(t *testing.T) {
	b := NewBuilder(entry(".", KindDir))
	src := b.AddDir(b.Root(), entry("src", KindDir))
	slots := []int{
		b.AddFile(b.Root(), entry("a.txt", KindFile)),
		b.AddFile(src, entry("src/main.go", KindFile)),
		b.AddFile(src, entry("src/util.go", KindFile)),
		b.AddFile(b.Root(), entry("z.md", KindFile)),
	}

	order := rand.New(rand.NewSource(7)).Perm(len(slots))
	var wg sync.WaitGroup
	for _, i := range order {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			b.Complete(slot, &FileRecord{State: StateText, Lines: slot + 1, TokensExact: true})
		}(slots[i])
	}
	wg.Wait()

	tr := b.Finish(time.Second)

	assert.Equal(t, []string{"src", "src/main.go", "src/util.go", "a.txt", "z.md"}, relPaths(tr))
	assert.Equal(t, int64(4), tr.Stats.Files)
	assert.Equal(t, int64(1+2+3+4), tr.Stats.Lines)
	assert.Equal(t, time.Second, tr.Stats.Elapsed)

	files := tr.Files()
	require.Len(t, files, 4)
	assert.Equal(t, "src/main.go", files[0].Entry.RelPath, "records inherit the slot entry")
}

func TestFinishMarksMissingSlotsUnreadable(t *testing.T) {
	b := NewBuilder(entry(".", KindDir))
	done := b.AddFile(b.Root(), entry("done.txt", KindFile))
	b.AddFile(b.Root(), entry("lost.txt", KindFile))
	b.Complete(done, &FileRecord{State: StateText, Lines: 1, TokensExact: true})

	tr := b.Finish(0)

	files := tr.Files()
	require.Len(t, files, 2)
	assert.Equal(t, StateUnreadable, files[1].State)
	assert.Error(t, files[1].Err)
	assert.Equal(t, int64(1), tr.Stats.Unreadable)
}

func TestStatsCountCacheOutcomes(t *testing.T) {
	b := NewBuilder(entry(".", KindDir))
	outcomes := []CacheOutcome{CacheHit, CacheHit, CacheMiss, CacheBypass}
	for i, o := range outcomes {
		slot := b.AddFile(b.Root(), entry(string(rune('a'+i)), KindFile))
		b.Complete(slot, &FileRecord{State: StateText, Cache: o, TokensExact: o != CacheBypass})
	}
	bin := b.AddFile(b.Root(), entry("img.png", KindFile))
	b.Complete(bin, &FileRecord{State: StateBinary})

	st := b.Finish(0).Stats

	assert.Equal(t, int64(2), st.CacheHits)
	assert.Equal(t, int64(1), st.CacheMisses)
	assert.Equal(t, int64(1), st.EstimatedFiles)
	assert.Equal(t, int64(1), st.Binary)
	assert.InDelta(t, 2.0/3.0, st.HitRate(), 1e-9)
	assert.False(t, st.TokensExact())
}

func TestHitRateZeroWithoutCache(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.HitRate())
	assert.Equal(t, 1.0, Stats{CacheHits: 3}.HitRate())
}

func TestWalkSkipDir(t *testing.T) {
	b := NewBuilder(entry(".", KindDir))
	vendor := b.AddDir(b.Root(), entry("vendor", KindDir))
	b.AddFile(vendor, entry("vendor/x.go", KindFile))
	b.AddFile(b.Root(), entry("main.go", KindFile))
	tr := b.Finish(0)

	var seen []string
	tr.Root.Walk(func(n *Node) error {
		seen = append(seen, n.Entry.RelPath)
		if n.Entry.RelPath == "vendor" {
			return fs.SkipDir
		}
		return nil
	})
	assert.Equal(t, []string{".", "vendor", "main.go"}, seen)
}

func TestLargest(t *testing.T) {
	b := NewBuilder(entry(".", KindDir))
	for i, chars := range []int{10, 300, 20, 300} {
		slot := b.AddFile(b.Root(), entry(string(rune('a'+i)), KindFile))
		b.Complete(slot, &FileRecord{Chars: chars})
	}
	top := b.Finish(0).Largest(2)

	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Entry.RelPath)
	assert.Equal(t, "d", top[1].Entry.RelPath)
}
