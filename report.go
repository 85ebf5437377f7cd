package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/jadenpxrk/dumpfs/internal/cache"
	"github.com/jadenpxrk/dumpfs/internal/tree"
)

const (
	// all files are listed up to this many, otherwise only the largest
	reportAllFiles = 15
	reportTopFiles = 10
	reportPathLen  = 60
)

type reportInfo struct {
	Output string
	Model  string
	Cache  cache.Stats
}

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	doneColor  = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
)

// printReport writes the file table and the run summary.
func printReport(w io.Writer, st *tree.ScanTree, info reportInfo) {
	files := st.Largest(0)
	shown := files
	title := "PROCESSED FILES"
	if len(files) > reportAllFiles {
		shown = files[:reportTopFiles]
		title = fmt.Sprintf("TOP %d LARGEST FILES BY CHARACTER COUNT", reportTopFiles)
	}

	fmt.Fprintln(w)
	titleColor.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tLines\tTokens\t")
	for _, rec := range shown {
		tokens := formatNumber(int64(rec.Tokens))
		if rec.State != tree.StateText {
			tokens = "-"
		} else if !rec.TokensExact {
			tokens = "~" + tokens
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", truncatePath(rec.Entry.RelPath, reportPathLen), formatNumber(int64(rec.Lines)), tokens)
	}
	tw.Flush()

	s := st.Stats
	fmt.Fprintln(w)
	doneColor.Fprintln(w, "EXTRACTION COMPLETE")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Output\t%s\n", info.Output)
	fmt.Fprintf(tw, "Process time\t%s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "Files processed\t%s\n", formatNumber(s.Files))
	fmt.Fprintf(tw, "Total lines\t%s\n", formatNumber(s.Lines))
	if s.TokensExact() && info.Model != "" {
		fmt.Fprintf(tw, "LLM tokens\t%s tokens (counted, %s)\n", formatNumber(s.Tokens), info.Model)
	} else {
		fmt.Fprintf(tw, "LLM tokens\t%s tokens (estimated)\n", formatNumber(s.Tokens))
	}
	if info.Model != "" {
		total := s.CacheHits + s.CacheMisses
		fmt.Fprintf(tw, "Cache hit rate\t%.1f%% (%d hits / %d total)\n", s.HitRate()*100, s.CacheHits, total)
		fmt.Fprintf(tw, "Cached counts\t%d\n", info.Cache.Entries)
	}
	tw.Flush()

	if s.Binary > 0 || s.Unreadable > 0 {
		warnColor.Fprintf(w, "Skipped content: %d binary, %d unreadable\n", s.Binary, s.Unreadable)
	}
	if info.Model != "" && s.EstimatedFiles > 0 {
		warnColor.Fprintf(w, "%d file(s) fell back to estimated token counts\n", s.EstimatedFiles)
	}
}

// formatNumber abbreviates thousands and millions.
func formatNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// truncatePath keeps the trailing segments of p that fit in max characters.
func truncatePath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	parts := strings.Split(p, "/")
	n := len("...")
	var keep []string
	for i := len(parts) - 1; i >= 0; i-- {
		if n+len(parts[i])+1 > max {
			break
		}
		keep = append([]string{parts[i]}, keep...)
		n += len(parts[i]) + 1
	}
	if len(keep) == 0 {
		return "..." + p[len(p)-(max-3):]
	}
	return ".../" + strings.Join(keep, "/")
}
