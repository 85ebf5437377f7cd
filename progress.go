package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v2"
)

// progress renders the measurement progress bar. It stays silent when the
// writer is not a terminal.
type progress struct {
	w       *os.File
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgress(w *os.File) *progress {
	return &progress{w: w, enabled: isTerminal(w)}
}

func (p *progress) Start(total int) {
	if !p.enabled || total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(40),
	)
}

func (p *progress) Advance(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the bar and moves the cursor past it.
func (p *progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.w)
	p.bar = nil
}

// gitProgress returns w for git's sideband output on terminals, nil otherwise.
func gitProgress(w *os.File) io.Writer {
	if !isTerminal(w) {
		return nil
	}
	return w
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
