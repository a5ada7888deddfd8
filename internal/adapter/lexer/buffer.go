package lexer

import (
	"sort"
	"unicode/utf8"

	"github.com/desiderantes/stew/internal/domain"
)

// SourceBuffer holds the immutable content of one file together with the
// offsets of its line starts.
type SourceBuffer struct {
	name       string
	src        []byte
	lineStarts []int
}

// NewSourceBuffer indexes src. The slice must not be modified afterwards.
func NewSourceBuffer(name string, src []byte) *SourceBuffer {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceBuffer{name: name, src: src, lineStarts: starts}
}

// Lines returns the number of lines in the buffer.
func (b *SourceBuffer) Lines() int { return len(b.lineStarts) }

// Position converts a byte offset into a line/column position.
func (b *SourceBuffer) Position(offset int) domain.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.src) {
		offset = len(b.src)
	}
	line := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1
	start := b.lineStarts[line]
	return domain.Position{
		Line:   line + 1,
		Column: utf8.RuneCount(b.src[start:offset]) + 1,
		Offset: offset,
	}
}
