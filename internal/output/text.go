package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jadenpxrk/dumpfs/internal/tree"
)

// textWriter prints a tree drawing followed by one block per file.
type textWriter struct {
	opts Options
}

func (t *textWriter) Write(w io.Writer, st *tree.ScanTree) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Directory scan of %s (%s)\n", st.Root.Entry.Name, t.opts.now().Format(time.RFC3339))
	if r := t.opts.Repo; r != nil {
		fmt.Fprintf(bw, "Repository: %s (%s)\n", r, r.URL)
	}
	bw.WriteString("\n")
	bw.WriteString(printTree(st.Root))
	bw.WriteString("\n")

	for _, rec := range st.Files() {
		t.writeFile(bw, rec)
	}

	s := st.Stats
	fmt.Fprintf(bw, "Files: %d  Lines: %d  Tokens: %d", s.Files, s.Lines, s.Tokens)
	if !s.TokensExact() {
		bw.WriteString(" (estimated)")
	}
	bw.WriteString("\n")
	return bw.Flush()
}

func (t *textWriter) writeFile(bw *bufio.Writer, rec *tree.FileRecord) {
	fmt.Fprintf(bw, "File: %s\n", rec.Entry.RelPath)
	if rec.State == tree.StateText {
		est := ""
		if !rec.TokensExact {
			est = " (estimated)"
		}
		fmt.Fprintf(bw, "Lines: %d  Tokens: %d%s\n", rec.Lines, rec.Tokens, est)
	}
	if t.opts.IncludeMetadata {
		fmt.Fprintf(bw, "Size: %d bytes  Modified: %s  Permissions: %#o\n",
			rec.Entry.Size, rec.Entry.ModTime.Format(time.RFC3339), rec.Entry.Mode.Perm())
	}
	bw.WriteString(strings.Repeat("=", 50))
	bw.WriteString("\n")

	if rec.State != tree.StateText {
		fmt.Fprintf(bw, "[%s]\n\n", stateLabel(rec))
		return
	}
	bw.WriteString(rec.Content)
	if len(rec.Content) > 0 && !strings.HasSuffix(rec.Content, "\n") {
		bw.WriteString("\n")
	}
	bw.WriteString("\n")
}

// printTree draws the tree with box-drawing connectors, root name first.
func printTree(root *tree.Node) string {
	var b strings.Builder
	b.WriteString(root.Entry.Name)
	b.WriteString("\n")
	printNode(&b, root.Children, "")
	return b.String()
}

func printNode(b *strings.Builder, children []*tree.Node, prefix string) {
	for i, node := range children {
		connector := "├── "
		newPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			newPrefix = prefix + "    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(node.Entry.Name)
		if node.IsDir() {
			b.WriteString("/")
		} else if node.Record.State == tree.StateSymlink {
			b.WriteString(" -> ")
			b.WriteString(node.Entry.LinkTarget)
		}
		b.WriteString("\n")

		if node.IsDir() && len(node.Children) > 0 {
			printNode(b, node.Children, newPrefix)
		}
	}
}
