package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 4, 5, 0, time.UTC)
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
		skip  []string
	}{
		{"debug", []string{"DEBUG d", "INFO i", "WARN w", "ERROR e"}, nil},
		{"info", []string{"INFO i", "WARN w", "ERROR e"}, []string{"DEBUG"}},
		{"WARN", []string{"WARN w", "ERROR e"}, []string{"DEBUG", "INFO"}},
		{"error", []string{"ERROR e"}, []string{"DEBUG", "INFO", "WARN"}},
		{"bogus", []string{"INFO i"}, []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level)
			l.now = fixedClock

			l.Debugf("d")
			l.Infof("i")
			l.Warnf("w")
			l.Errorf("e")

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, s := range tt.skip {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestTimestampPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info")
	l.now = fixedClock

	l.Infof("scanning %s", "src")

	assert.Equal(t, "[09:04:05] INFO scanning src\n", buf.String())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Warnf("nothing happens")
	})
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Infof("worker %02d done", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
	for _, line := range lines {
		assert.Regexp(t, `^\[\d\d:\d\d:\d\d\] INFO worker \d\d done$`, line)
	}
}

func TestColorOnlyOnTerminals(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "a regular file is not a terminal")

	l := New(f, "info")
	l.Infof("plain")
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\x1b[")
}
