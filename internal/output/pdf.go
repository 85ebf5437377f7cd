package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"

	"github.com/jadenpxrk/dumpfs/internal/tree"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5   // Line height in mm
	pdfFontSize   = 9
	pdfTabWidth   = 4 // Number of spaces for a tab
	pdfTextWidth  = pdfPageWidth - 2*pdfMargin
)

// pdfWriter renders the tree drawing, every text file with syntax
// highlighting and a summary page.
type pdfWriter struct {
	opts Options
}

func (p *pdfWriter) Write(w io.Writer, st *tree.ScanTree) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	// core fonts are cp1252; translate so non-ASCII text does not turn into mojibake
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	pdf.SetFont("Helvetica", "B", pdfFontSize+3)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight+1, tr("Directory scan of "+st.Root.Entry.Name), "", "L", false)
	pdf.SetFont("Helvetica", "", pdfFontSize-1)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, p.opts.now().Format(time.RFC3339), "", "L", false)
	if r := p.opts.Repo; r != nil {
		pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr("Repository: "+r.URL), "", "L", false)
	}
	pdf.Ln(pdfLineHeight)

	// box-drawing characters have no cp1252 glyphs
	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr(asciiTree(printTree(st.Root))), "", "L", false)

	for _, rec := range st.Files() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr("File: "+rec.Entry.RelPath), "", "L", false)
		pdf.Ln(pdfLineHeight / 2)

		if rec.State != tree.StateText {
			pdf.SetFont("Helvetica", "I", pdfFontSize)
			pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr("["+stateLabel(rec)+"]"), "", "L", false)
			continue
		}

		pdf.SetFont("Helvetica", "", pdfFontSize-1)
		tokens := fmt.Sprintf("Lines: %d  Tokens: %d", rec.Lines, rec.Tokens)
		if !rec.TokensExact {
			tokens += " (estimated)"
		}
		pdf.MultiCell(pdfTextWidth, pdfLineHeight, tokens, "", "L", false)
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		if err := writeHighlightedCode(pdf, tr, style, rec); err != nil {
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr(rec.Content), "", "L", false)
		}
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, "Summary", "", "L", false)
	pdf.Ln(pdfLineHeight / 2)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	s := st.Stats
	summary := fmt.Sprintf("Files: %d\nLines: %d\nCharacters: %d\nTokens: %d", s.Files, s.Lines, s.Chars, s.Tokens)
	if !s.TokensExact() {
		summary += " (estimated)"
	}
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, summary, "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// lexerFor picks a chroma lexer by file name, then by detected language,
// then by content analysis.
func lexerFor(rec *tree.FileRecord) chroma.Lexer {
	lexer := lexers.Match(rec.Entry.Name)
	if lexer == nil && rec.Language != "" {
		lexer = lexers.Get(rec.Language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(rec.Content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func writeHighlightedCode(pdf *gofpdf.Fpdf, tr func(string) string, style *chroma.Style, rec *tree.FileRecord) error {
	iterator, err := lexerFor(rec).Tokenise(nil, rec.Content)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	fg := style.Get(chroma.Text).Colour

	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		styleStr := ""
		if entry.Bold == chroma.Yes {
			styleStr += "B"
		}
		if entry.Italic == chroma.Yes {
			styleStr += "I"
		}
		pdf.SetFontStyle(styleStr)

		switch {
		case entry.Colour.IsSet():
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		case fg.IsSet():
			pdf.SetTextColor(int(fg.Red()), int(fg.Green()), int(fg.Blue()))
		default:
			pdf.SetTextColor(0, 0, 0)
		}

		pdf.Write(pdfLineHeight, tr(strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth))))
	}
	pdf.Ln(-1)
	return pdf.Error()
}

var treeASCII = strings.NewReplacer("├── ", "|-- ", "└── ", "`-- ", "│   ", "|   ")

func asciiTree(s string) string {
	return treeASCII.Replace(s)
}
