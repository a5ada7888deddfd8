package domain

import (
	"fmt"
	"time"
)

// Function identifies which gettext function a record was extracted for.
type Function string

const (
	FuncGettext    Function = "gettext"
	FuncDGettext   Function = "dgettext"
	FuncDCGettext  Function = "dcgettext"
	FuncNGettext   Function = "ngettext"
	FuncDNGettext  Function = "dngettext"
	FuncDCNGettext Function = "dcngettext"
)

// Position is a location in a source buffer. Line and Column are 1-based;
// Column counts runes. Offset is the 0-based byte offset.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// MessageRecord is one translatable message found in a source file.
type MessageRecord struct {
	Function Function `json:"function" yaml:"function"`
	Keyword  string   `json:"keyword" yaml:"keyword"`
	Domain   string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	Singular string   `json:"singular" yaml:"singular"`
	Plural   string   `json:"plural,omitempty" yaml:"plural,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Pos      Position `json:"position" yaml:"position"`
}

type DiagnosticKind string

const (
	DiagUnterminatedLiteral DiagnosticKind = "unterminated_literal"
	DiagUnterminatedComment DiagnosticKind = "unterminated_comment"
)

// Diagnostic reports a condition that stopped the scan of one file.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Pos     Position       `json:"position" yaml:"position"`
	Message string         `json:"message" yaml:"message"`
}

// Document is a source file known to the extraction cache.
type Document struct {
	ID          string
	Path        string
	ModTime     time.Time
	ContentHash string
	Lang        string
}

// FileResult is the outcome of extracting one file in a batch run.
type FileResult struct {
	Path       string          `json:"path" yaml:"path"`
	Records    []MessageRecord `json:"records" yaml:"records"`
	Diagnostic *Diagnostic     `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	Cached     bool            `json:"-" yaml:"-"`
	Err        string          `json:"error,omitempty" yaml:"error,omitempty"`
}

type Stats struct {
	TotalDocs    int       `json:"total_docs"`
	TotalRecords int       `json:"total_records"`
	UpdatedAt    time.Time `json:"updated_at"`
}
