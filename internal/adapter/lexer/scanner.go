// Package lexer splits C and C++ source text into tokens without running a
// preprocessor. Comments and string literals are recognized so that text
// inside them is never seen as code.
package lexer

import (
	"bytes"
	"unicode/utf8"
)

// maxRawDelimiter is the longest d-char-sequence C++ allows in R"delim(...)delim".
const maxRawDelimiter = 16

// Scanner produces tokens from a SourceBuffer on demand.
type Scanner struct {
	buf *SourceBuffer
	src []byte
	off int
}

// NewScanner returns a Scanner positioned at the start of buf.
func NewScanner(buf *SourceBuffer) *Scanner {
	return &Scanner{buf: buf, src: buf.src}
}

// Next returns the next token. At the end of input it returns a token of
// kind EOF. An unterminated block comment or string literal yields the
// partial token together with a *ScanError; the scanner is then exhausted.
func (s *Scanner) Next() (Token, error) {
	s.skipSpace()
	if s.off >= len(s.src) {
		return Token{Kind: EOF, Pos: s.buf.Position(s.off)}, nil
	}

	start := s.off
	c := s.src[start]
	switch {
	case c == '/' && s.peek(1) == '*':
		return s.blockComment(start)
	case c == '/' && s.peek(1) == '/':
		return s.lineComment(start), nil
	case c == '"':
		return s.stringLiteral(start, start)
	case c == '\'':
		return s.charLiteral(start), nil
	case isIdentStart(c):
		s.off++
		for s.off < len(s.src) && isIdentPart(s.src[s.off]) {
			s.off++
		}
		if s.peek(0) == '"' {
			switch string(s.src[start:s.off]) {
			case "L", "u", "U", "u8":
				return s.stringLiteral(start, s.off)
			case "R", "LR", "uR", "UR", "u8R":
				return s.rawString(start, s.off)
			}
		}
		return s.token(Identifier, start), nil
	case isDigit(c) || (c == '.' && isDigit(s.peek(1))):
		s.number()
		return s.token(Other, start), nil
	case c >= utf8.RuneSelf:
		_, size := utf8.DecodeRune(s.src[start:])
		s.off += size
		return s.token(Other, start), nil
	default:
		s.off++
		return s.token(Punctuation, start), nil
	}
}

// ScanAll tokenizes the whole buffer, stopping at the first error.
func ScanAll(buf *SourceBuffer) ([]Token, error) {
	s := NewScanner(buf)
	var toks []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return toks, err
		}
		if tok.Kind == EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Text: string(s.src[start:s.off]), Pos: s.buf.Position(start)}
}

func (s *Scanner) peek(n int) byte {
	if s.off+n < len(s.src) {
		return s.src[s.off+n]
	}
	return 0
}

func (s *Scanner) skipSpace() {
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			s.off++
		default:
			return
		}
	}
}

func (s *Scanner) fail(start int, err error) *ScanError {
	s.off = len(s.src)
	return &ScanError{File: s.buf.name, Pos: s.buf.Position(start), Err: err}
}

func (s *Scanner) blockComment(start int) (Token, error) {
	end := bytes.Index(s.src[start+2:], []byte("*/"))
	if end < 0 {
		tok := Token{Kind: BlockComment, Text: string(s.src[start:]), Pos: s.buf.Position(start)}
		return tok, s.fail(start, ErrUnterminatedComment)
	}
	s.off = start + 2 + end + 2
	return s.token(BlockComment, start), nil
}

// lineComment runs to the end of the line; a backslash-newline splices the
// next line into the comment.
func (s *Scanner) lineComment(start int) Token {
	s.off += 2
	for s.off < len(s.src) {
		c := s.src[s.off]
		if c == '\\' {
			if s.peek(1) == '\n' {
				s.off += 2
				continue
			}
			if s.peek(1) == '\r' && s.peek(2) == '\n' {
				s.off += 3
				continue
			}
		}
		if c == '\n' {
			break
		}
		s.off++
	}
	return s.token(LineComment, start)
}

// stringLiteral scans a quoted literal whose opening quote is at quote;
// start may be earlier when an encoding prefix precedes the quote. An
// unescaped newline ends the literal with an error at start.
func (s *Scanner) stringLiteral(start, quote int) (Token, error) {
	s.off = quote + 1
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case '\\':
			if s.peek(1) == '\r' && s.peek(2) == '\n' {
				s.off += 3
				continue
			}
			s.off += 2
		case '\n':
			tok := Token{Kind: StringLiteral, Text: string(s.src[start:s.off]), Pos: s.buf.Position(start)}
			return tok, s.fail(start, ErrUnterminatedLiteral)
		case '"':
			tok := Token{
				Kind:  StringLiteral,
				Text:  string(s.src[start : s.off+1]),
				Value: string(s.src[quote+1 : s.off]),
				Pos:   s.buf.Position(start),
			}
			s.off++
			return tok, nil
		default:
			s.off++
		}
	}
	tok := Token{Kind: StringLiteral, Text: string(s.src[start:]), Pos: s.buf.Position(start)}
	return tok, s.fail(start, ErrUnterminatedLiteral)
}

// rawString scans R"delim(...)delim". A malformed delimiter falls back to
// an ordinary literal.
func (s *Scanner) rawString(start, quote int) (Token, error) {
	open := -1
	for i := quote + 1; i < len(s.src) && i <= quote+1+maxRawDelimiter; i++ {
		c := s.src[i]
		if c == '(' {
			open = i
			break
		}
		if c == ' ' || c == ')' || c == '\\' || c == '\t' || c == '\n' || c == '"' {
			break
		}
	}
	if open < 0 {
		return s.stringLiteral(start, quote)
	}

	closing := make([]byte, 0, open-quote+1)
	closing = append(closing, ')')
	closing = append(closing, s.src[quote+1:open]...)
	closing = append(closing, '"')

	end := bytes.Index(s.src[open+1:], closing)
	if end < 0 {
		tok := Token{Kind: StringLiteral, Text: string(s.src[start:]), Pos: s.buf.Position(start)}
		return tok, s.fail(start, ErrUnterminatedLiteral)
	}
	s.off = open + 1 + end + len(closing)
	return Token{
		Kind:  StringLiteral,
		Text:  string(s.src[start:s.off]),
		Value: string(s.src[open+1 : open+1+end]),
		Pos:   s.buf.Position(start),
	}, nil
}

// charLiteral scans 'x'. An unclosed character literal ends at the line end.
func (s *Scanner) charLiteral(start int) Token {
	s.off++
	for s.off < len(s.src) {
		c := s.src[s.off]
		if c == '\n' {
			break
		}
		s.off++
		if c == '\\' && s.off < len(s.src) && s.src[s.off] != '\n' {
			s.off++
			continue
		}
		if c == '\'' {
			break
		}
	}
	return s.token(Other, start)
}

// number consumes a pp-number: digits, letters, dots, exponent signs and
// C++14 digit separators.
func (s *Scanner) number() {
	s.off++
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case isIdentPart(c) || c == '.':
			s.off++
		case (c == '+' || c == '-') && isExponent(s.src[s.off-1]):
			s.off++
		case c == '\'' && isIdentPart(s.peek(1)):
			s.off += 2
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isExponent(c byte) bool {
	return c == 'e' || c == 'E' || c == 'p' || c == 'P'
}
