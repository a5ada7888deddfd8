// Package output renders extraction results as JSON, YAML or plain text.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/desiderantes/stew/internal/domain"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Write renders results in the named format.
func Write(w io.Writer, format string, results []domain.FileResult) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, results)
	case FormatYAML:
		return WriteYAML(w, results)
	case FormatText:
		return WriteText(w, results)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func WriteJSON(w io.Writer, results []domain.FileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(results)); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func WriteYAML(w io.Writer, results []domain.FileResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(results)); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteText prints one line per record in compiler-diagnostic form:
//
//	path:line:col: keyword [domain] [category] "singular" ["plural"]
//
// Message text is printed as it appears in the source, escapes included.
func WriteText(w io.Writer, results []domain.FileResult) error {
	for _, r := range results {
		if r.Err != "" {
			if _, err := fmt.Fprintf(w, "%s: error: %s\n", r.Path, r.Err); err != nil {
				return err
			}
			continue
		}
		for _, rec := range r.Records {
			if _, err := fmt.Fprintf(w, "%s:%s: %s\n", r.Path, rec.Pos, FormatRecord(rec)); err != nil {
				return err
			}
		}
		if d := r.Diagnostic; d != nil {
			if _, err := fmt.Fprintf(w, "%s:%s: warning: %s\n", r.Path, d.Pos, d.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatRecord renders a record without its position.
func FormatRecord(rec domain.MessageRecord) string {
	var sb strings.Builder
	sb.WriteString(rec.Keyword)
	if rec.Domain != "" {
		sb.WriteString(" domain=")
		sb.WriteString(rec.Domain)
	}
	if rec.Category != "" {
		sb.WriteString(" category=")
		sb.WriteString(rec.Category)
	}
	sb.WriteString(` "`)
	sb.WriteString(rec.Singular)
	sb.WriteByte('"')
	if rec.Plural != "" {
		sb.WriteString(` "`)
		sb.WriteString(rec.Plural)
		sb.WriteByte('"')
	}
	return sb.String()
}

// normalize replaces nil record slices so encoders emit [] rather than null.
func normalize(results []domain.FileResult) []domain.FileResult {
	out := make([]domain.FileResult, len(results))
	for i, r := range results {
		if r.Records == nil {
			r.Records = []domain.MessageRecord{}
		}
		out[i] = r
	}
	return out
}
