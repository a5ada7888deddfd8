package lexer

import (
	"errors"
	"fmt"

	"github.com/desiderantes/stew/internal/domain"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Identifier
	StringLiteral
	LineComment
	BlockComment
	Punctuation
	Other
)

var kindNames = map[Kind]string{
	EOF:           "EOF",
	Identifier:    "Identifier",
	StringLiteral: "StringLiteral",
	LineComment:   "LineComment",
	BlockComment:  "BlockComment",
	Punctuation:   "Punctuation",
	Other:         "Other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical unit. Text is the raw source text; for string
// literals Value holds the content between the quotes with escape
// sequences left as written.
type Token struct {
	Kind  Kind
	Text  string
	Value string
	Pos   domain.Position
}

// IsComment reports whether the token carries no code.
func (t Token) IsComment() bool {
	return t.Kind == LineComment || t.Kind == BlockComment
}

// IsPunct reports whether the token is the given punctuation byte.
func (t Token) IsPunct(c byte) bool {
	return t.Kind == Punctuation && len(t.Text) == 1 && t.Text[0] == c
}

var (
	ErrUnterminatedLiteral = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated block comment")
)

// ScanError reports a construct that runs to the end of the buffer.
type ScanError struct {
	File string
	Pos  domain.Position
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.File, e.Pos.Line, e.Pos.Column, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Diagnostic converts the error into the record attached to a file result.
func (e *ScanError) Diagnostic() domain.Diagnostic {
	kind := domain.DiagUnterminatedLiteral
	if errors.Is(e.Err, ErrUnterminatedComment) {
		kind = domain.DiagUnterminatedComment
	}
	return domain.Diagnostic{Kind: kind, Pos: e.Pos, Message: e.Err.Error()}
}
