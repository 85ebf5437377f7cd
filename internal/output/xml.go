package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/jadenpxrk/dumpfs/internal/tree"
)

// xmlWriter produces the directory_scan document: system information, a
// names-only overview and the full tree with file contents in CDATA sections.
type xmlWriter struct {
	opts Options
}

// xmlEncoder keeps the first encoding error so element helpers can be
// chained without checking every call.
type xmlEncoder struct {
	enc  *xml.Encoder
	opts Options
	err  error
}

func (x *xmlWriter) Write(w io.Writer, st *tree.ScanTree) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	e := &xmlEncoder{enc: enc, opts: x.opts}

	e.start("directory_scan", "timestamp", x.opts.now().Format(time.RFC3339))
	e.systemInfo()
	e.overview(st.Root)
	e.directory(st.Root)
	e.end("directory_scan")
	if e.err == nil {
		e.err = enc.Flush()
	}
	if e.err == nil {
		_, e.err = io.WriteString(w, "\n")
	}
	if e.err != nil {
		return fmt.Errorf("failed to encode xml: %w", e.err)
	}
	return nil
}

func (e *xmlEncoder) start(name string, attrs ...string) {
	if e.err != nil {
		return
	}
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	e.err = e.enc.EncodeToken(el)
}

func (e *xmlEncoder) end(name string) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (e *xmlEncoder) empty(name string, attrs ...string) {
	e.start(name, attrs...)
	e.end(name)
}

func (e *xmlEncoder) text(name, value string) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

func (e *xmlEncoder) cdata(name, value string) {
	if e.err != nil {
		return
	}
	v := struct {
		Text string `xml:",cdata"`
	}{value}
	e.err = e.enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
}

func (e *xmlEncoder) systemInfo() {
	e.start("system_info")
	e.text("hostname", hostname())
	e.text("os", runtime.GOOS)
	e.text("arch", runtime.GOARCH)
	if r := e.opts.Repo; r != nil {
		e.start("git_repository")
		e.text("url", r.URL)
		e.text("host", r.Host)
		e.text("owner", r.Owner)
		e.text("name", r.Name)
		e.end("git_repository")
	}
	e.end("system_info")
}

func (e *xmlEncoder) overview(root *tree.Node) {
	e.start("overview")
	e.overviewDir(root)
	e.end("overview")
}

func (e *xmlEncoder) overviewDir(dir *tree.Node) {
	e.start("directory", "name", dir.Entry.Name)
	for _, child := range dir.Children {
		switch {
		case child.IsDir():
			e.overviewDir(child)
		case child.Record.State == tree.StateSymlink:
			e.empty("symlink", "name", child.Entry.Name)
		default:
			e.empty("file", "name", child.Entry.Name)
		}
	}
	e.end("directory")
}

func (e *xmlEncoder) metadata(entry tree.PathEntry) {
	if !e.opts.IncludeMetadata {
		return
	}
	e.start("metadata")
	e.text("size", strconv.FormatInt(entry.Size, 10))
	e.text("modified", entry.ModTime.Format(time.RFC3339))
	e.text("permissions", fmt.Sprintf("%#o", entry.Mode.Perm()))
	e.end("metadata")
}

func (e *xmlEncoder) directory(dir *tree.Node) {
	e.start("directory", "name", dir.Entry.Name, "path", dir.Entry.RelPath)
	e.metadata(dir.Entry)
	e.start("contents")
	for _, child := range dir.Children {
		if child.IsDir() {
			e.directory(child)
			continue
		}
		e.file(child.Record)
	}
	e.end("contents")
	e.end("directory")
}

func (e *xmlEncoder) file(rec *tree.FileRecord) {
	entry := rec.Entry
	switch rec.State {
	case tree.StateBinary:
		e.start("binary", "name", entry.Name, "path", entry.RelPath)
		e.metadata(entry)
		e.end("binary")
	case tree.StateSymlink:
		e.start("symlink", "name", entry.Name, "path", entry.RelPath)
		e.metadata(entry)
		e.text("target", entry.LinkTarget)
		e.end("symlink")
	case tree.StateText:
		attrs := []string{
			"name", entry.Name,
			"path", entry.RelPath,
			"lines", strconv.Itoa(rec.Lines),
			"tokens", strconv.Itoa(rec.Tokens),
		}
		if !rec.TokensExact {
			attrs = append(attrs, "tokens_estimated", "true")
		}
		if rec.Language != "" {
			attrs = append(attrs, "language", rec.Language)
		}
		e.start("file", attrs...)
		e.metadata(entry)
		e.cdata("content", rec.Content)
		e.end("file")
	default:
		e.start("file", "name", entry.Name, "path", entry.RelPath, "status", rec.State.String())
		e.metadata(entry)
		e.text("note", stateLabel(rec))
		e.end("file")
	}
}
