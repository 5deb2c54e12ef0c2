// Package source owns the raw text of a compilation unit and gives the rest
// of the pipeline O(1) access to individual lines by number.
package source

import (
	"os"
	"strings"
)

// Manager holds a source unit's byte sequence verbatim plus a line index
// built eagerly at load time.
type Manager struct {
	filename string
	source   string
	lines    []string
}

// New builds a Manager directly from an in-memory string, the path taken by
// tests and by any host that doesn't read from disk.
func New(src, filename string) *Manager {
	m := &Manager{filename: filename, source: src}
	m.splitLines()
	return m
}

// LoadFile reads filename in full and returns a Manager over its contents.
func LoadFile(filename string) (*Manager, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return New(string(b), filename), nil
}

func (m *Manager) splitLines() {
	if m.source == "" {
		return
	}
	raw := strings.Split(m.source, "\n")
	// A trailing "\n" produces one final empty element from strings.Split;
	// the corresponding line never existed in the input, drop it.
	if len(raw) > 0 && raw[len(raw)-1] == "" && strings.HasSuffix(m.source, "\n") {
		raw = raw[:len(raw)-1]
	}
	m.lines = make([]string, len(raw))
	for i, l := range raw {
		m.lines[i] = strings.TrimSuffix(l, "\r")
	}
}

// GetLine returns the 1-based line, or "" if lineNum is out of range.
func (m *Manager) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > len(m.lines) {
		return ""
	}
	return m.lines[lineNum-1]
}

// LineCount returns the number of lines in the source.
func (m *Manager) LineCount() int { return len(m.lines) }

// Filename returns the display name given at construction.
func (m *Manager) Filename() string { return m.filename }

// Source returns the complete, unmodified source text.
func (m *Manager) Source() string { return m.source }
