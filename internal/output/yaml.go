package output

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jadenpxrk/dumpfs/internal/tree"
)

type yamlWriter struct {
	opts Options
}

type yamlDoc struct {
	Root        string    `yaml:"root"`
	GeneratedAt string    `yaml:"generated_at"`
	Repository  *yamlRepo `yaml:"repository,omitempty"`
	Stats       yamlStats `yaml:"stats"`
	Tree        yamlNode  `yaml:"tree"`
}

type yamlRepo struct {
	URL   string `yaml:"url"`
	Host  string `yaml:"host"`
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

type yamlStats struct {
	Files           int64   `yaml:"files"`
	Lines           int64   `yaml:"lines"`
	Chars           int64   `yaml:"chars"`
	Tokens          int64   `yaml:"tokens"`
	TokensEstimated bool    `yaml:"tokens_estimated"`
	Binary          int64   `yaml:"binary"`
	Unreadable      int64   `yaml:"unreadable"`
	CacheHitRate    float64 `yaml:"cache_hit_rate"`
}

type yamlMeta struct {
	Size        int64  `yaml:"size"`
	Modified    string `yaml:"modified"`
	Permissions string `yaml:"permissions"`
}

type yamlNode struct {
	Name            string     `yaml:"name"`
	Path            string     `yaml:"path"`
	Type            string     `yaml:"type"`
	Status          string     `yaml:"status,omitempty"`
	Target          string     `yaml:"target,omitempty"`
	Language        string     `yaml:"language,omitempty"`
	Lines           int        `yaml:"lines,omitempty"`
	Tokens          int        `yaml:"tokens,omitempty"`
	TokensEstimated bool       `yaml:"tokens_estimated,omitempty"`
	Metadata        *yamlMeta  `yaml:"metadata,omitempty"`
	Content         string     `yaml:"content,omitempty"`
	Children        []yamlNode `yaml:"children,omitempty"`
}

func (y *yamlWriter) Write(w io.Writer, st *tree.ScanTree) error {
	doc := yamlDoc{
		Root:        st.Root.Entry.Name,
		GeneratedAt: y.opts.now().Format(time.RFC3339),
		Stats: yamlStats{
			Files:           st.Stats.Files,
			Lines:           st.Stats.Lines,
			Chars:           st.Stats.Chars,
			Tokens:          st.Stats.Tokens,
			TokensEstimated: !st.Stats.TokensExact(),
			Binary:          st.Stats.Binary,
			Unreadable:      st.Stats.Unreadable,
			CacheHitRate:    st.Stats.HitRate(),
		},
		Tree: y.node(st.Root),
	}
	if r := y.opts.Repo; r != nil {
		doc.Repository = &yamlRepo{URL: r.URL, Host: r.Host, Owner: r.Owner, Name: r.Name}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func (y *yamlWriter) node(n *tree.Node) yamlNode {
	out := yamlNode{Name: n.Entry.Name, Path: n.Entry.RelPath}
	if y.opts.IncludeMetadata {
		out.Metadata = &yamlMeta{
			Size:        n.Entry.Size,
			Modified:    n.Entry.ModTime.Format(time.RFC3339),
			Permissions: fmt.Sprintf("%#o", n.Entry.Mode.Perm()),
		}
	}

	if n.IsDir() {
		out.Type = "directory"
		for _, child := range n.Children {
			out.Children = append(out.Children, y.node(child))
		}
		return out
	}

	rec := n.Record
	switch rec.State {
	case tree.StateText:
		out.Type = "file"
		out.Language = rec.Language
		out.Lines = rec.Lines
		out.Tokens = rec.Tokens
		out.TokensEstimated = !rec.TokensExact
		out.Content = rec.Content
	case tree.StateSymlink:
		out.Type = "symlink"
		out.Target = rec.Entry.LinkTarget
	case tree.StateBinary:
		out.Type = "binary"
	default:
		out.Type = "file"
		out.Status = rec.State.String()
	}
	return out
}
