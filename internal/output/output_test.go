package output

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jadenpxrk/dumpfs/internal/gitrepo"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func entry(rel string, kind tree.Kind) tree.PathEntry {
	return tree.PathEntry{
		AbsPath: "/proj/" + rel,
		RelPath: rel,
		Name:    filepath.Base(rel),
		Kind:    kind,
		Size:    42,
		ModTime: fixedTime,
		Mode:    0644,
	}
}

func sampleTree() *tree.ScanTree {
	b := tree.NewBuilder(tree.PathEntry{AbsPath: "/proj", RelPath: ".", Name: "proj", ModTime: fixedTime, Mode: 0755})
	root := b.Root()

	a := b.AddFile(root, entry("a.txt", tree.KindFile))
	img := b.AddFile(root, entry("img.png", tree.KindFile))
	linkEntry := entry("link", tree.KindSymlink)
	linkEntry.LinkTarget = "a.txt"
	link := b.AddFile(root, linkEntry)
	src := b.AddDir(root, entry("src", tree.KindDir))
	main := b.AddFile(src, entry("src/main.go", tree.KindFile))
	big := b.AddFile(src, entry("src/big.sql", tree.KindFile))

	b.Complete(main, &tree.FileRecord{State: tree.StateText, Content: "package main\n", Lines: 1, Chars: 13, Tokens: 4, TokensExact: true, Language: "Go"})
	b.Complete(a, &tree.FileRecord{State: tree.StateText, Content: "hi\nthere", Lines: 2, Chars: 8, Tokens: 3, TokensExact: true})
	b.Complete(img, &tree.FileRecord{State: tree.StateBinary})
	b.Complete(link, &tree.FileRecord{State: tree.StateSymlink})
	b.Complete(big, &tree.FileRecord{State: tree.StateTooLarge})
	return b.Finish(time.Second)
}

func render(t *testing.T, format string, opts Options) string {
	t.Helper()
	opts.Now = func() time.Time { return fixedTime }
	w, err := New(format, opts)
	require.NoError(t, err)
	data, err := Render(w, sampleTree())
	require.NoError(t, err)
	return string(data)
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("docx", Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, []string{"pdf", "text", "xml", "yaml"}, Formats())
	assert.True(t, Binary("PDF"))
	assert.False(t, Binary("xml"))
}

func TestXMLDocument(t *testing.T) {
	repo, err := gitrepo.Parse("https://github.com/me/proj")
	require.NoError(t, err)
	out := render(t, "XML", Options{Repo: &repo})

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<directory_scan timestamp="2024-05-01T12:00:00Z">`)
	assert.Contains(t, out, `<owner>me</owner>`)
	assert.Contains(t, out, `<file name="a.txt" path="a.txt" lines="2" tokens="3">`)
	assert.Contains(t, out, "<content><![CDATA[hi\nthere]]></content>")
	assert.Contains(t, out, `<file name="main.go" path="src/main.go" lines="1" tokens="4" language="Go">`)
	assert.Contains(t, out, `<binary name="img.png" path="img.png">`)
	assert.Contains(t, out, `<target>a.txt</target>`)
	assert.Contains(t, out, `<file name="big.sql" path="src/big.sql" status="too_large">`)
	assert.NotContains(t, out, "<metadata>")

	// overview precedes the full tree and keeps tree order
	overview := out[strings.Index(out, "<overview>"):strings.Index(out, "</overview>")]
	assert.Less(t, strings.Index(overview, `name="a.txt"`), strings.Index(overview, `name="src"`))
	assert.Contains(t, overview, `<symlink name="link"></symlink>`)

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err, "output must be well-formed")
	}
}

func TestXMLMetadata(t *testing.T) {
	out := render(t, "xml", Options{IncludeMetadata: true})
	assert.Contains(t, out, "<size>42</size>")
	assert.Contains(t, out, "<modified>2024-05-01T12:00:00Z</modified>")
	assert.Contains(t, out, "<permissions>0644</permissions>")
}

func TestXMLContentWithCDATATerminator(t *testing.T) {
	b := tree.NewBuilder(tree.PathEntry{Name: "r", RelPath: "."})
	slot := b.AddFile(b.Root(), entry("x.txt", tree.KindFile))
	b.Complete(slot, &tree.FileRecord{State: tree.StateText, Content: "a]]>b"})

	w, err := New("xml", Options{})
	require.NoError(t, err)
	data, err := Render(w, b.Finish(0))
	require.NoError(t, err)

	var doc struct {
		Dir struct {
			Contents struct {
				Files []struct {
					Content string `xml:"content"`
				} `xml:"file"`
			} `xml:"contents"`
		} `xml:"directory"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Dir.Contents.Files, 1)
	assert.Equal(t, "a]]>b", doc.Dir.Contents.Files[0].Content)
}

func TestTextDocument(t *testing.T) {
	out := render(t, "text", Options{})

	assert.Contains(t, out, "proj\n"+
		"├── a.txt\n"+
		"├── img.png\n"+
		"├── link -> a.txt\n"+
		"└── src/\n"+
		"    ├── main.go\n"+
		"    └── big.sql\n")
	assert.Contains(t, out, "File: a.txt\nLines: 2  Tokens: 3\n"+strings.Repeat("=", 50)+"\nhi\nthere\n\n")
	assert.Contains(t, out, "File: img.png\n"+strings.Repeat("=", 50)+"\n[binary, not included]\n")
	assert.Contains(t, out, "[too large, not included]")
	assert.True(t, strings.HasSuffix(out, "Files: 5  Lines: 3  Tokens: 7\n"))
}

func TestYAMLDocument(t *testing.T) {
	out := render(t, "yaml", Options{})

	var doc yamlDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "proj", doc.Root)
	assert.EqualValues(t, 5, doc.Stats.Files)
	assert.False(t, doc.Stats.TokensEstimated)
	require.Len(t, doc.Tree.Children, 4)

	a := doc.Tree.Children[0]
	assert.Equal(t, "file", a.Type)
	assert.Equal(t, "hi\nthere", a.Content)
	assert.Equal(t, 2, a.Lines)
	assert.Equal(t, "binary", doc.Tree.Children[1].Type)
	assert.Equal(t, "a.txt", doc.Tree.Children[2].Target)

	src := doc.Tree.Children[3]
	assert.Equal(t, "directory", src.Type)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "Go", src.Children[0].Language)
	assert.Equal(t, "too_large", src.Children[1].Status)
	assert.Nil(t, src.Metadata)
}

func TestPDFDocument(t *testing.T) {
	out := render(t, "pdf", Options{})
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
}

func TestLexerFor(t *testing.T) {
	rec := &tree.FileRecord{Entry: tree.PathEntry{Name: "main.go"}, Content: "package main"}
	assert.Equal(t, "Go", lexerFor(rec).Config().Name)

	rec = &tree.FileRecord{Entry: tree.PathEntry{Name: "notes"}, Content: "plain words"}
	assert.NotNil(t, lexerFor(rec))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	require.NoError(t, WriteFile(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("new"), data))
}
