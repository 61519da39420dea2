// Package logbuf provides a bounded, append-only line buffer used to capture
// the combined output of pipeline stages.
package logbuf

import (
	"strings"
	"sync"
)

// DefaultMaxLines is the number of lines kept when no limit is configured.
const DefaultMaxLines = 450

// Buffer keeps the most recent lines appended to it. Once full, each new line
// overwrites the oldest one. It is safe for concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	lines []string
	start int
	count int
	last  string
}

// New creates a Buffer holding at most maxLines lines.
// A non-positive maxLines falls back to DefaultMaxLines.
func New(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Buffer{
		lines: make([]string, maxLines),
	}
}

// Append adds text to the buffer. Text containing newlines is stored as
// several lines.
func (b *Buffer) Append(text string) {
	parts := strings.Split(text, "\n")

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range parts {
		b.push(line)
	}
	b.last = parts[len(parts)-1]
}

func (b *Buffer) push(line string) {
	size := len(b.lines)
	if b.count < size {
		b.lines[(b.start+b.count)%size] = line
		b.count++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % size
}

// Lines returns a copy of the retained lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.lines[(b.start+i)%len(b.lines)]
	}
	return out
}

// String joins the retained lines with newlines.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}

// Last returns the most recently appended line.
func (b *Buffer) Last() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the maximum number of retained lines.
func (b *Buffer) Cap() int {
	return len(b.lines)
}
