// Package logger provides the leveled console logger used across dumpfs.
//
// Messages are prefixed with [HH:MM:SS] timestamps and a level tag. Output is
// serialized with a mutex so workers can log concurrently without interleaving
// lines. Color is enabled automatically when writing to a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelDebug int = 0
	levelInfo  int = 1
	levelWarn  int = 2
	levelError int = 3
)

// Logger writes leveled messages to a writer. A nil *Logger discards everything.
type Logger struct {
	writer      io.Writer
	level       int
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// New creates a Logger writing to w. Valid levels are debug, info, warn and
// error (case-insensitive); anything else falls back to info.
func New(w io.Writer, level string) *Logger {
	return &Logger{
		writer:      w,
		level:       parseLevel(level),
		colorOutput: isTerminal(w),
		now:         time.Now,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return New(io.Discard, "error")
}

// isTerminal reports whether w is a terminal that should get color. NO_COLOR
// turns color off everywhere.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(levelDebug, format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.log(levelInfo, format, args...)
}

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(levelWarn, format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(levelError, format, args...)
}

func (l *Logger) log(level int, format string, args ...any) {
	if l == nil || l.writer == nil || level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	tag := levelTag(level)
	if l.colorOutput {
		// color.NoColor tracks stdout; this writer was checked on its own
		c := levelColor(level)
		c.EnableColor()
		tag = c.Sprint(tag)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	fmt.Fprintf(l.writer, "[%s] %s %s\n", l.now().Format("15:04:05"), tag, msg)
}

func levelTag(level int) string {
	switch level {
	case levelDebug:
		return "DEBUG"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func levelColor(level int) *color.Color {
	switch level {
	case levelDebug:
		return color.New(color.FgHiBlack)
	case levelWarn:
		return color.New(color.FgYellow)
	case levelError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}
