// Package scanner provides the character-level primitives used by the spp
// directive tokenizer: the preprocessor whitespace classifier and a rune
// cursor that walks a single line left to right.
package scanner

import "unicode/utf8"

// IsSpace reports whether r is preprocessor whitespace: space, tab,
// newline, vertical tab, form feed or carriage return.
//
// Unlike unicode.IsSpace it does not accept NEL, NBSP or any other
// Unicode space; directive syntax is ASCII only.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// LineScanner iterates rune-by-rune over one line of input. Invalid UTF-8
// bytes are returned as utf8.RuneError with a width of one byte; Text still
// yields the original byte.
type LineScanner struct {
	src   string
	pos   int // byte offset of the rune last returned by Next
	width int // byte width of the rune last returned by Next
}

// New creates a LineScanner for the given line.
// Call Next() to advance to the first rune.
func New(src string) *LineScanner {
	return &LineScanner{src: src, pos: -1}
}

// Next advances to the next rune.
// Returns the rune and true, or (0, false) at end of input.
func (s *LineScanner) Next() (rune, bool) {
	if s.pos < 0 {
		s.pos = 0
	} else {
		s.pos += s.width
	}
	if s.pos >= len(s.src) {
		s.pos = len(s.src)
		s.width = 0
		return 0, false
	}
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])
	s.width = w
	return r, true
}

// Peek returns the next rune without advancing, or (0, false) at end.
func (s *LineScanner) Peek() (rune, bool) {
	next := s.pos + s.width
	if s.pos < 0 {
		next = 0
	}
	if next >= len(s.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s.src[next:])
	return r, true
}

// AtEnd reports whether the rune last returned by Next is the final rune
// of the line.
func (s *LineScanner) AtEnd() bool {
	_, ok := s.Peek()
	return !ok
}

// Text returns the source bytes of the rune last returned by Next. For an
// invalid UTF-8 byte this is the byte itself, not the replacement rune.
func (s *LineScanner) Text() string {
	if s.pos < 0 {
		return ""
	}
	return s.src[s.pos : s.pos+s.width]
}
