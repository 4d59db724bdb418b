// Package textbuf is the buffer the CLI edits: a document held in memory with
// offset and line/column conversion.
package textbuf

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Position is a 1-based line and column. Columns count characters, not bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Buffer is an immutable document snapshot.
type Buffer struct {
	text       string
	lineStarts []int
}

// New creates a Buffer over text.
func New(text string) *Buffer {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Buffer{text: text, lineStarts: starts}
}

// Text returns the full document text.
func (b *Buffer) Text() string {
	return b.text
}

// OffsetAt converts a position to a byte offset.
// A column past the end of the line is an error.
func (b *Buffer) OffsetAt(pos Position) (int, error) {
	if pos.Line < 1 || pos.Line > len(b.lineStarts) {
		return 0, fmt.Errorf("line %d out of range (1-%d)", pos.Line, len(b.lineStarts))
	}
	if pos.Column < 1 {
		return 0, fmt.Errorf("column %d out of range", pos.Column)
	}

	line := b.line(pos.Line - 1)
	offset := b.lineStarts[pos.Line-1]
	for col := 1; col < pos.Column; col++ {
		if line == "" {
			return 0, fmt.Errorf("column %d past end of line %d", pos.Column, pos.Line)
		}
		_, size := utf8.DecodeRuneInString(line)
		line = line[size:]
		offset += size
	}
	return offset, nil
}

// PositionAt converts a byte offset to a position. Offsets are clamped to the text.
func (b *Buffer) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}

	idx := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1

	col := utf8.RuneCountInString(b.text[b.lineStarts[idx]:offset]) + 1
	return Position{Line: idx + 1, Column: col}
}

// Replace returns the text with [start, end) replaced by repl.
func (b *Buffer) Replace(start, end int, repl string) (string, error) {
	if start < 0 || end < start || end > len(b.text) {
		return "", fmt.Errorf("invalid span [%d, %d) for text of length %d", start, end, len(b.text))
	}

	var sb strings.Builder
	sb.Grow(len(b.text) - (end - start) + len(repl))
	sb.WriteString(b.text[:start])
	sb.WriteString(repl)
	sb.WriteString(b.text[end:])
	return sb.String(), nil
}

// line returns line i (0-based) without its newline.
func (b *Buffer) line(i int) string {
	start := b.lineStarts[i]
	end := len(b.text)
	if i+1 < len(b.lineStarts) {
		end = b.lineStarts[i+1] - 1
	}
	return strings.TrimSuffix(b.text[start:end], "\r")
}
